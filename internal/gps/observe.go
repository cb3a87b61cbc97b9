package gps

import "context"

// Observe wraps p so fn sees every sample before the watcher does.
// fn runs on the stream goroutine and must not block.
func Observe(p Provider, fn func(Sample)) Provider {
	return &observed{Provider: p, fn: fn}
}

type observed struct {
	Provider
	fn func(Sample)
}

func (o *observed) Watch(ctx context.Context, opts WatchOptions) (<-chan Update, error) {
	in, err := o.Provider.Watch(ctx, opts)
	if err != nil {
		return nil, err
	}
	out := make(chan Update, watcherBuffer)
	go func() {
		defer close(out)
		for u := range in {
			if u.Sample != nil {
				o.fn(*u.Sample)
			}
			select {
			case out <- u:
			case <-ctx.Done():
				// Drain so the source can close.
				for range in {
				}
				return
			}
		}
	}()
	return out, nil
}
