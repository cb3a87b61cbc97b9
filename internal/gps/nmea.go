package gps

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/Aditya4503/YATRIK/internal/geo"
)

// NMEAProvider reads standard NMEA 0183 sentences from a UART GPS.
// Compatible with u-blox NEO-M8N and any standard NMEA GPS.
// One port reader is shared by every watcher.
type NMEAProvider struct {
	portPath string
	baudRate int

	mu      sync.Mutex
	running bool
	hub     *hub

	open func(path string, mode *serial.Mode) (io.ReadCloser, error)
}

// NMEAConfig holds configuration for the NMEA GPS provider.
type NMEAConfig struct {
	PortPath string `yaml:"port_path" json:"portPath"`
	BaudRate int    `yaml:"baud_rate" json:"baudRate"`
}

// NewNMEA creates a new NMEA GPS provider.
func NewNMEA(cfg NMEAConfig) *NMEAProvider {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600 // Standard NMEA default
	}
	n := &NMEAProvider{
		portPath: cfg.PortPath,
		baudRate: cfg.BaudRate,
		hub:      newHub(),
	}
	n.open = n.openSerial
	return n
}

func (n *NMEAProvider) Name() string { return "NMEA GPS" }

// Watch subscribes to fixes, opening the port if nobody is reading it yet.
func (n *NMEAProvider) Watch(ctx context.Context, opts WatchOptions) (<-chan Update, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.running {
		mode := &serial.Mode{
			BaudRate: n.baudRate,
			DataBits: 8,
			Parity:   serial.NoParity,
			StopBits: serial.OneStopBit,
		}
		rc, err := n.open(n.portPath, mode)
		if err != nil {
			return nil, &Error{Code: PositionUnavailable, Message: err.Error()}
		}
		n.running = true
		go n.readLoop(rc)
	}
	return n.hub.add(ctx, opts), nil
}

func (n *NMEAProvider) openSerial(path string, mode *serial.Mode) (io.ReadCloser, error) {
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(200 * time.Millisecond); err != nil {
		port.Close()
		return nil, fmt.Errorf("failed to set timeout: %w", err)
	}
	log.Printf("[gps] connected to %s at %d baud", path, n.baudRate)
	return port, nil
}

// readLoop feeds sentences to the parser until the port fails or the last
// watcher leaves. Reads time out so an idle port still notices the latter.
func (n *NMEAProvider) readLoop(rc io.ReadCloser) {
	defer rc.Close()

	var (
		parser  nmeaParser
		pending []byte
		buf     = make([]byte, 256)
		idle    = 0
	)
	for {
		nr, err := rc.Read(buf)
		if nr > 0 {
			pending = append(pending, buf[:nr]...)
			for {
				i := bytes.IndexByte(pending, '\n')
				if i < 0 {
					break
				}
				line := string(pending[:i])
				pending = pending[i+1:]
				if s, ok := parser.parse(line); ok {
					n.hub.publish(s)
				}
			}
			if len(pending) > 1024 {
				pending = pending[:0] // garbage without newlines
			}
		}
		if err != nil {
			log.Printf("[gps] read failed on %s: %v", n.portPath, err)
			n.mu.Lock()
			n.running = false
			n.hub.fail(&Error{Code: PositionUnavailable, Message: err.Error()})
			n.mu.Unlock()
			return
		}
		if nr == 0 {
			idle++
		} else {
			idle = 0
		}
		if idle%5 != 0 {
			continue
		}
		n.mu.Lock()
		if n.hub.count() == 0 {
			n.running = false
			n.mu.Unlock()
			log.Printf("[gps] no watchers left, closing %s", n.portPath)
			return
		}
		n.mu.Unlock()
	}
}

// Fix holds the accumulated state of RMC + GGA sentences.
type Fix struct {
	Valid      bool    `json:"valid"`      // Fix is valid
	Latitude   float64 `json:"latitude"`   // Decimal degrees
	Longitude  float64 `json:"longitude"`  // Decimal degrees
	Speed      float64 `json:"speed"`      // km/h
	Heading    float64 `json:"heading"`    // Degrees true
	Altitude   float64 `json:"altitude"`   // Meters
	Satellites int     `json:"satellites"` // Sats in use
	FixQuality int     `json:"fixQuality"` // 0=none, 1=GPS, 2=DGPS
	HDOP       float64 `json:"hdop"`       // Horizontal dilution
	Time       time.Time
}

// uereMeters is the assumed user equivalent range error for HDOP scaling.
const uereMeters = 5.0

type nmeaParser struct {
	last Fix
}

// parse consumes one line. It returns a sample each time a valid RMC fix
// arrives; GGA only refines satellite count, HDOP and altitude.
func (p *nmeaParser) parse(line string) (Sample, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "$") || !validateNMEAChecksum(line) {
		return Sample{}, false
	}

	switch {
	case strings.HasPrefix(line, "$GPRMC") || strings.HasPrefix(line, "$GNRMC"):
		if !p.parseRMC(line) || !p.last.Valid {
			return Sample{}, false
		}
		s := Sample{
			Location:  geo.Point{Latitude: p.last.Latitude, Longitude: p.last.Longitude},
			Timestamp: p.last.Time,
		}
		if p.last.HDOP > 0 {
			s.AccuracyMeters = p.last.HDOP * uereMeters
		}
		return s, true
	case strings.HasPrefix(line, "$GPGGA") || strings.HasPrefix(line, "$GNGGA"):
		p.parseGGA(line)
	}
	return Sample{}, false
}

func (p *nmeaParser) parseRMC(line string) bool {
	// $GPRMC,hhmmss.ss,A,llll.ll,a,yyyyy.yy,a,x.x,x.x,ddmmyy,x.x,a*hh
	parts := splitNMEA(line)
	if len(parts) < 10 {
		return false
	}

	p.last.Valid = parts[2] == "A"
	p.last.Time = parseNMEATime(parts[1], parts[9])

	if p.last.Valid {
		p.last.Latitude = parseNMEACoord(parts[3], parts[4])
		p.last.Longitude = parseNMEACoord(parts[5], parts[6])

		if spd, err := strconv.ParseFloat(parts[7], 64); err == nil {
			p.last.Speed = spd * 1.852 // Knots to km/h
		}
		if hdg, err := strconv.ParseFloat(parts[8], 64); err == nil {
			p.last.Heading = hdg
		}
	}
	return true
}

func (p *nmeaParser) parseGGA(line string) {
	// $GPGGA,hhmmss.ss,llll.ll,a,yyyyy.yy,a,x,xx,x.x,x.x,M,x.x,M,x.x,xxxx*hh
	parts := splitNMEA(line)
	if len(parts) < 11 {
		return
	}

	if fix, err := strconv.Atoi(parts[6]); err == nil {
		p.last.FixQuality = fix
	}
	if sats, err := strconv.Atoi(parts[7]); err == nil {
		p.last.Satellites = sats
	}
	if hdop, err := strconv.ParseFloat(parts[8], 64); err == nil {
		p.last.HDOP = hdop
	}
	if alt, err := strconv.ParseFloat(parts[9], 64); err == nil {
		p.last.Altitude = alt
	}
}

// splitNMEA splits a sentence and strips the checksum suffix.
func splitNMEA(line string) []string {
	// Strip checksum: everything after *
	if idx := strings.Index(line, "*"); idx >= 0 {
		line = line[:idx]
	}
	line = strings.TrimPrefix(line, "$")
	return strings.Split(line, ",")
}

// parseNMEACoord converts NMEA ddmm.mmmm format to decimal degrees.
func parseNMEACoord(raw, dir string) float64 {
	if raw == "" || dir == "" {
		return 0
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	deg := math.Floor(val / 100)
	min := val - deg*100
	result := deg + min/60

	if dir == "S" || dir == "W" {
		result = -result
	}
	return result
}

// parseNMEATime combines RMC hhmmss.ss and ddmmyy into a UTC time.
// Returns the zero time if either field is malformed.
func parseNMEATime(hms, dmy string) time.Time {
	if len(hms) < 6 || len(dmy) != 6 {
		return time.Time{}
	}
	clock, err := time.Parse("150405", hms[:6])
	if err != nil {
		return time.Time{}
	}
	date, err := time.Parse("020106", dmy)
	if err != nil {
		return time.Time{}
	}
	var frac time.Duration
	if len(hms) > 7 && hms[6] == '.' {
		if f, err := strconv.ParseFloat("0"+hms[6:], 64); err == nil {
			frac = time.Duration(f * float64(time.Second))
		}
	}
	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), int(frac), time.UTC)
}

// validateNMEAChecksum checks the XOR checksum after *.
func validateNMEAChecksum(line string) bool {
	idx := strings.Index(line, "*")
	if idx < 0 || idx+3 > len(line) {
		return false
	}
	body := line[1:idx] // Between $ and *
	var calc byte
	for i := 0; i < len(body); i++ {
		calc ^= body[i]
	}
	expected, err := strconv.ParseUint(line[idx+1:idx+3], 16, 8)
	if err != nil {
		return false
	}
	return byte(expected) == calc
}
