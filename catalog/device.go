package catalog

import (
	"context"
	"fmt"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-motion/channel"
)

// Factory creates the channel named name. readOnly is true for channels that must never be
// written, text is true for string-valued channels.
type Factory func(name string, readOnly bool, text bool) (channel.Channel, error)

// Signal is a catalog entry bound to channels.
type Signal struct {
	Entry Entry
	// Read is the channel the signal is read from.
	Read channel.Channel
	// Write is the channel the signal is written to, nil for read-only entries.
	Write channel.Channel
}

// Device is a catalog bound to a channel prefix.
type Device struct {
	prefix  string
	catalog *Catalog
	signals *xsync.MapOf[string, *Signal]
}

// Bind creates the channels of every entry of c, named prefix followed by the entry suffix.
func Bind(prefix string, c *Catalog, factory Factory) (*Device, error) {
	if factory == nil {
		return nil, ErrNilFactory
	}

	d := &Device{
		prefix:  prefix,
		catalog: c,
		signals: xsync.NewMapOf[string, *Signal](),
	}

	for _, e := range c.entries {
		sig := &Signal{Entry: e}

		read, err := factory(prefix+e.ReadSuffix(), e.Kind != KindReadWrite, e.String)
		if err != nil {
			return nil, fmt.Errorf("bind %s: %w", e.Attr, err)
		}
		sig.Read = read

		switch e.Kind {
		case KindReadWrite:
			sig.Write = read
		case KindWithRBV:
			write, err := factory(prefix+e.Suffix, false, e.String)
			if err != nil {
				return nil, fmt.Errorf("bind %s: %w", e.Attr, err)
			}
			sig.Write = write
		}

		d.signals.Store(e.Attr, sig)
	}

	return d, nil
}

// Prefix returns the channel prefix of the device.
func (d *Device) Prefix() string { return d.prefix }

// Catalog returns the catalog the device was bound from.
func (d *Device) Catalog() *Catalog { return d.catalog }

// Signal returns the bound signal of attr.
func (d *Device) Signal(attr string) (*Signal, error) {
	sig, ok := d.signals.Load(attr)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttr, attr)
	}

	return sig, nil
}

// Channels returns every bound channel in catalog order, the read channel of an entry first.
func (d *Device) Channels() []channel.Channel {
	chans := make([]channel.Channel, 0, len(d.catalog.entries))
	for _, e := range d.catalog.entries {
		sig, ok := d.signals.Load(e.Attr)
		if !ok {
			continue
		}
		chans = append(chans, sig.Read)
		if sig.Write != nil && sig.Write != sig.Read {
			chans = append(chans, sig.Write)
		}
	}

	return chans
}

// WaitForConnection blocks until every channel of the device is connected or ctx is done.
func (d *Device) WaitForConnection(ctx context.Context) error {
	return channel.WaitConnected(ctx, d.Channels()...)
}

// SimFactory returns a Factory creating SimChannels, registering each one in created when
// created is not nil.
func SimFactory(created *xsync.MapOf[string, *channel.SimChannel], opts ...channel.SimOption) Factory {
	return func(name string, readOnly bool, _ bool) (channel.Channel, error) {
		chOpts := append([]channel.SimOption(nil), opts...)
		if readOnly {
			chOpts = append(chOpts, channel.WithReadOnly())
		}
		ch := channel.NewSimChannel(name, chOpts...)
		if created != nil {
			created.Store(name, ch)
		}

		return ch, nil
	}
}
