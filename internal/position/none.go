package position

import (
	"context"

	"github.com/banshee-data/speedwatch/internal/geo"
)

// NoneSource stands in when no location facility is configured. Every
// request fails with ErrUnsupported.
type NoneSource struct{}

// CurrentPosition always fails with ErrUnsupported.
func (NoneSource) CurrentPosition(ctx context.Context, opts Options) (geo.Sample, error) {
	return geo.Sample{}, ErrUnsupported
}

// Watch reports ErrUnsupported once and closes when ctx is done.
func (NoneSource) Watch(ctx context.Context, opts Options) <-chan Update {
	ch := make(chan Update, 1)
	ch <- Update{Err: ErrUnsupported}
	go func() {
		<-ctx.Done()
		close(ch)
	}()
	return ch
}
