package position

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"

	"github.com/banshee-data/speedwatch/internal/geo"
	"github.com/banshee-data/speedwatch/internal/monitoring"
)

// uereMeters converts HDOP to an approximate 1-sigma horizontal accuracy.
// It is the typical user equivalent range error of an autonomous L1 fix.
const uereMeters = 5.0

// NMEADecoder turns a stream of NMEA sentences into samples. RMC sentences
// carry the position and UTC time; the most recent GGA supplies HDOP, which
// becomes the sample's accuracy. Other sentence types are ignored.
type NMEADecoder struct {
	hdop float64
}

// Decode parses one line. It returns ok=true with a sample for a valid RMC
// fix and ErrPositionUnavailable for a void RMC. Unparseable lines return
// the parse error; callers log and skip them.
func (d *NMEADecoder) Decode(line string) (s geo.Sample, ok bool, err error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return geo.Sample{}, false, nil
	}
	sentence, err := nmea.Parse(line)
	if err != nil {
		return geo.Sample{}, false, fmt.Errorf("parse nmea: %w", err)
	}

	switch m := sentence.(type) {
	case nmea.GGA:
		if m.FixQuality == nmea.Invalid {
			d.hdop = 0
		} else {
			d.hdop = m.HDOP
		}
		return geo.Sample{}, false, nil

	case nmea.RMC:
		if m.Validity != nmea.ValidRMC {
			return geo.Sample{}, false, ErrPositionUnavailable
		}
		if !m.Date.Valid || !m.Time.Valid {
			return geo.Sample{}, false, fmt.Errorf("%w: rmc without date or time", ErrPositionUnavailable)
		}
		ts := time.Date(2000+m.Date.YY, time.Month(m.Date.MM), m.Date.DD,
			m.Time.Hour, m.Time.Minute, m.Time.Second, m.Time.Millisecond*int(time.Millisecond), time.UTC)
		return geo.Sample{
			Lat:             m.Latitude,
			Lon:             m.Longitude,
			TimestampMillis: ts.UnixMilli(),
			AccuracyM:       d.hdop * uereMeters,
		}, true, nil
	}
	return geo.Sample{}, false, nil
}

// lineFeed decodes NMEA lines and publishes the results to a hub. It is the
// shared core of the serial, UDP, pcap and replay sources.
type lineFeed struct {
	hub     *Hub
	decoder NMEADecoder
	name    string
}

// decode decodes one line, publishing a lost fix as an error. It returns
// the sample when the line carried a fix.
func (f *lineFeed) decode(line string) (geo.Sample, bool) {
	s, ok, err := f.decoder.Decode(line)
	switch {
	case errors.Is(err, ErrPositionUnavailable):
		f.hub.PublishError(ErrPositionUnavailable)
	case err != nil:
		monitoring.Debugf("%s: skipping line %q: %v", f.name, line, err)
	case ok:
		return s, true
	}
	return geo.Sample{}, false
}

// handle decodes one line and publishes its sample or error. It returns the
// sample when one was published.
func (f *lineFeed) handle(line string) (geo.Sample, bool) {
	s, ok := f.decode(line)
	if ok {
		f.hub.Publish(s)
	}
	return s, ok
}

// handlePayload splits a datagram that may carry several sentences.
func (f *lineFeed) handlePayload(payload []byte) {
	for _, line := range strings.Split(string(payload), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			f.handle(line)
		}
	}
}

// readLines feeds every line of r through the decoder until EOF or
// cancellation and returns the number of fixes published. wait, when set,
// runs before each fix is published; an error from it stops the feed.
func (f *lineFeed) readLines(ctx context.Context, r io.Reader, wait func(geo.Sample) error) (int, error) {
	var count int
	scan := bufio.NewScanner(r)
	for scan.Scan() {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		s, ok := f.decode(scan.Text())
		if !ok {
			continue
		}
		if wait != nil {
			if err := wait(s); err != nil {
				return count, err
			}
		}
		f.hub.Publish(s)
		count++
	}
	return count, scan.Err()
}
