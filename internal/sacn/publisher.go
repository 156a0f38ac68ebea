package sacn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"golang.org/x/net/ipv4"

	"github.com/edelmann/spidmx-monitor/internal/dmxframe"
)

// Publisher periodically encodes a dmxframe.Frame into an E1.31 DMP
// packet and multicasts it, the refresh-rate behaviour a real sACN
// source shows. It is this bridge's own output side: the "transport
// client that delivers DMX frames to a daemon" the decoder's own
// specification keeps external to the parser.
type Publisher struct {
	Frame      *dmxframe.Frame
	Universe   uint16
	SourceName string
	CID        [16]byte
	Priority   uint8
	Interval   time.Duration

	conn net.PacketConn
	addr *net.UDPAddr

	sequence    uint32 // atomic; wraps through uint8 like a real sACN source
	lastPublish atomic.Value
}

// NewPublisher builds a Publisher for frame, publishing as universe at
// interval. Priority defaults to 100, the common sACN default.
func NewPublisher(frame *dmxframe.Frame, universe uint16, sourceName string, interval time.Duration) *Publisher {
	return &Publisher{
		Frame:      frame,
		Universe:   universe,
		SourceName: sourceName,
		Priority:   100,
		Interval:   interval,
	}
}

func (p *Publisher) dial() error {
	conn, err := net.ListenPacket("udp4", ":0")
	if err != nil {
		return fmt.Errorf("open outbound socket: %w", err)
	}
	p.conn = conn

	pconn := ipv4.NewPacketConn(conn)
	if iface, err := defaultMulticastInterface(); err == nil {
		_ = pconn.SetMulticastInterface(iface)
	}
	_ = pconn.SetMulticastTTL(8)

	group := MulticastAddressForUniverse(p.Universe)
	udpAddr, err := net.ResolveUDPAddr("udp4", fmt.Sprintf("%s:%d", group, E131Port))
	if err != nil {
		conn.Close()
		return fmt.Errorf("resolve multicast group for universe %d: %w", p.Universe, err)
	}
	p.addr = udpAddr
	return nil
}

// Run ticks on p.Interval, sending the current frame until ctx is
// cancelled. A failed send is non-fatal to the decoder (see
// SPEC_FULL.md §7): Run only returns an error if the socket itself
// cannot be opened or has been closed.
func (p *Publisher) Run(ctx context.Context) error {
	if p.conn == nil {
		if err := p.dial(); err != nil {
			return err
		}
	}
	defer p.conn.Close()

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.publishOnce(); err != nil && errors.Is(err, net.ErrClosed) {
				return err
			}
		}
	}
}

func (p *Publisher) publishOnce() error {
	seq := uint8(atomic.AddUint32(&p.sequence, 1) - 1)
	channels := p.Frame.RawChannels()

	raw := Encode(EncodeOptions{
		CID:        p.CID,
		SourceName: p.SourceName,
		Priority:   p.Priority,
		Sequence:   seq,
		Universe:   p.Universe,
	}, channels[:])

	if _, err := p.conn.WriteTo(raw, p.addr); err != nil {
		return fmt.Errorf("publish universe %d: %w", p.Universe, err)
	}
	p.lastPublish.Store(time.Now())
	return nil
}

// LastPublish returns the time of the last successful send, or the
// zero time if nothing has been published yet.
func (p *Publisher) LastPublish() time.Time {
	if v := p.lastPublish.Load(); v != nil {
		return v.(time.Time)
	}
	return time.Time{}
}

func defaultMulticastInterface() (*net.Interface, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		if iface.Flags&net.FlagMulticast == 0 {
			continue
		}
		if iface.Flags&net.FlagUp == 0 {
			continue
		}
		return &iface, nil
	}
	return nil, fmt.Errorf("no multicast-capable interface found")
}
