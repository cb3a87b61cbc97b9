package gps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"testing"
	"time"

	"go.bug.st/serial"
)

// sentence wraps an NMEA body with $ and a valid checksum.
func sentence(body string) string {
	var c byte
	for i := 0; i < len(body); i++ {
		c ^= body[i]
	}
	return fmt.Sprintf("$%s*%02X", body, c)
}

func TestValidateNMEAChecksum(t *testing.T) {
	good := sentence("GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,230394,003.1,W")
	if !validateNMEAChecksum(good) {
		t.Fatalf("expected %q to validate", good)
	}
	if good[len(good)-3:] != "*6A" {
		t.Fatalf("unexpected checksum in %q", good)
	}
	bad := good[:len(good)-2] + "6B"
	if validateNMEAChecksum(bad) {
		t.Fatalf("expected %q to fail checksum", bad)
	}
	if validateNMEAChecksum("$GPRMC,no,checksum") {
		t.Fatal("expected sentence without * to fail")
	}
}

func TestParseNMEACoord(t *testing.T) {
	tests := []struct {
		raw, dir string
		want     float64
	}{
		{"2000.40806", "N", 20.006801},
		{"07347.73978", "E", 73.795663},
		{"4807.038", "S", -48.1173},
		{"", "N", 0},
		{"abc", "N", 0},
	}
	for _, tt := range tests {
		got := parseNMEACoord(tt.raw, tt.dir)
		if math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("parseNMEACoord(%q, %q) = %.7f, want %.7f", tt.raw, tt.dir, got, tt.want)
		}
	}
}

func TestParseNMEATime(t *testing.T) {
	got := parseNMEATime("123519.50", "230394")
	want := time.Date(1994, time.March, 23, 12, 35, 19, 500_000_000, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if !parseNMEATime("", "230394").IsZero() {
		t.Fatal("expected zero time for empty clock")
	}
	if !parseNMEATime("123519", "2303").IsZero() {
		t.Fatal("expected zero time for short date")
	}
}

func TestParserEmitsSampleOnValidRMC(t *testing.T) {
	var p nmeaParser

	gga := sentence("GPGGA,101010.00,2000.40806,N,07347.73978,E,1,09,0.9,545.4,M,46.9,M,,")
	if _, ok := p.parse(gga); ok {
		t.Fatal("GGA alone should not produce a sample")
	}
	if p.last.Satellites != 9 || p.last.HDOP != 0.9 {
		t.Fatalf("GGA not applied: sats=%d hdop=%.1f", p.last.Satellites, p.last.HDOP)
	}

	rmc := sentence("GNRMC,101010.00,A,2000.40806,N,07347.73978,E,0.5,90.0,161026,,")
	s, ok := p.parse(rmc)
	if !ok {
		t.Fatal("expected valid RMC to produce a sample")
	}
	if math.Abs(s.Location.Latitude-20.006801) > 1e-6 || math.Abs(s.Location.Longitude-73.795663) > 1e-6 {
		t.Fatalf("unexpected location %+v", s.Location)
	}
	if math.Abs(s.AccuracyMeters-4.5) > 1e-9 {
		t.Fatalf("expected accuracy 4.5 m from HDOP 0.9, got %.2f", s.AccuracyMeters)
	}
	if s.Timestamp.Year() != 2026 || s.Timestamp.Hour() != 10 {
		t.Fatalf("unexpected timestamp %v", s.Timestamp)
	}
}

func TestParserIgnoresVoidAndCorruptSentences(t *testing.T) {
	var p nmeaParser
	void := sentence("GPRMC,101010.00,V,,,,,,,161026,,")
	if _, ok := p.parse(void); ok {
		t.Fatal("void RMC should not produce a sample")
	}
	// Correct checksum is 01.
	corrupt := "$GPRMC,101010.00,A,2000.40806,N,07347.73978,E,0.5,90.0,161026,,*00"
	if _, ok := p.parse(corrupt); ok {
		t.Fatal("corrupt RMC should not produce a sample")
	}
	if _, ok := p.parse("garbage"); ok {
		t.Fatal("garbage should not produce a sample")
	}
}

func newPipeNMEA() (*NMEAProvider, *io.PipeWriter) {
	pr, pw := io.Pipe()
	n := NewNMEA(NMEAConfig{PortPath: "/dev/test"})
	n.open = func(string, *serial.Mode) (io.ReadCloser, error) { return pr, nil }
	return n, pw
}

func TestNMEAProviderStreamsFixes(t *testing.T) {
	n, pw := newPipeNMEA()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := n.Watch(ctx, WatchOptions{})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	go func() {
		io.WriteString(pw, "noise\r\n")
		io.WriteString(pw, sentence("GPRMC,101010.00,A,2000.40806,N,07347.73978,E,0.5,90.0,161026,,")+"\r\n")
	}()

	select {
	case u := <-ch:
		if u.Err != nil || u.Sample == nil {
			t.Fatalf("expected sample, got %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fix")
	}

	// Port failure ends the stream with PositionUnavailable.
	pw.CloseWithError(errors.New("unplugged"))
	select {
	case u := <-ch:
		if !errors.Is(u.Err, ErrLocationUnavailable) {
			t.Fatalf("expected location error, got %+v", u)
		}
		var gerr *Error
		if !errors.As(u.Err, &gerr) || gerr.Code != PositionUnavailable {
			t.Fatalf("expected PositionUnavailable, got %v", u.Err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for error")
	}
	if _, open := <-ch; open {
		t.Fatal("expected stream to close after error")
	}
}

func TestNMEAProviderOpenFailure(t *testing.T) {
	n := NewNMEA(NMEAConfig{PortPath: "/dev/missing"})
	n.open = func(string, *serial.Mode) (io.ReadCloser, error) {
		return nil, errors.New("no such file")
	}
	_, err := n.Watch(context.Background(), WatchOptions{})
	var gerr *Error
	if !errors.As(err, &gerr) || gerr.Code != PositionUnavailable {
		t.Fatalf("expected PositionUnavailable, got %v", err)
	}
}
