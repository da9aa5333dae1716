// Package tuner talks to the satellite receiver daemon over its local
// control socket.
//
// The wire protocol is a single XML document per request, NUL-terminated,
// answered by a single NUL-terminated XML document. The receiver is an
// optional collaborator: every failure here is soft, tagged ErrExternal, and
// the caller decides whether to alert.
package tuner

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"net"
	"time"

	"librarian/internal/errkind"
)

// Status is the receiver's signal state.
type Status struct {
	XMLName xml.Name `xml:"response"`
	Lock    string   `xml:"tuner>lock"`
	Signal  int      `xml:"tuner>signal"`
	SNR     float64  `xml:"tuner>snr"`
	Bitrate int64    `xml:"streams>stream>bitrate"`
}

// HasLock reports whether the tuner is locked onto the signal.
func (s Status) HasLock() bool { return s.Lock == "yes" }

// Transfer is one in-flight download on the broadcast stream.
type Transfer struct {
	Path       string `xml:"path"`
	Hash       string `xml:"hash"`
	Block      int    `xml:"block_received"`
	BlockCount int    `xml:"block_count"`
	Complete   bool   `xml:"complete"`
}

type transfersResponse struct {
	XMLName   xml.Name   `xml:"response"`
	Transfers []Transfer `xml:"streams>stream>transfers>transfer"`
}

// CacheStorage reports the receiver's download cache usage in bytes.
type CacheStorage struct {
	XMLName xml.Name `xml:"response"`
	Total   int64    `xml:"cache>total"`
	Free    int64    `xml:"cache>free"`
	Used    int64    `xml:"cache>used"`
}

// Settings carries the tuning parameters pushed to the receiver.
type Settings struct {
	XMLName      xml.Name `xml:"settings"`
	Frequency    int      `xml:"frequency"`
	SymbolRate   int      `xml:"symbolrate"`
	Delivery     string   `xml:"delivery"`
	Modulation   string   `xml:"modulation"`
	Polarization string   `xml:"polarization"`
	ToneOn       bool     `xml:"tone"`
}

// Client issues requests against the receiver control socket. A zero timeout
// means 5 seconds.
type Client struct {
	socket  string
	timeout time.Duration
}

// New returns a client for the control socket at path.
func New(socket string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{socket: socket, timeout: timeout}
}

// GetStatus reads the tuner lock and signal state.
func (c *Client) GetStatus(ctx context.Context) (Status, error) {
	var status Status
	if err := c.roundTrip(ctx, `<get uri="/status"/>`, &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// GetTransfers lists in-flight downloads.
func (c *Client) GetTransfers(ctx context.Context) ([]Transfer, error) {
	var resp transfersResponse
	if err := c.roundTrip(ctx, `<get uri="/transfers"/>`, &resp); err != nil {
		return nil, err
	}
	return resp.Transfers, nil
}

// GetCacheStorage reads the receiver cache usage.
func (c *Client) GetCacheStorage(ctx context.Context) (CacheStorage, error) {
	var storage CacheStorage
	if err := c.roundTrip(ctx, `<get uri="/storage/cache"/>`, &storage); err != nil {
		return CacheStorage{}, err
	}
	return storage, nil
}

// SetSettings pushes tuning parameters to the receiver.
func (c *Client) SetSettings(ctx context.Context, settings Settings) error {
	body, err := xml.Marshal(settings)
	if err != nil {
		return errkind.Wrap(errkind.ErrExternal, "tuner", "set-settings", "encode settings", err)
	}
	request := fmt.Sprintf(`<setup uri="/settings">%s</setup>`, body)
	var ack struct {
		XMLName xml.Name `xml:"response"`
	}
	return c.roundTrip(ctx, request, &ack)
}

// roundTrip writes one NUL-terminated request and decodes the NUL-terminated
// reply into out.
func (c *Client) roundTrip(ctx context.Context, request string, out any) error {
	dialer := net.Dialer{Timeout: c.timeout}
	conn, err := dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return errkind.Wrap(errkind.ErrExternal, "tuner", "dial", c.socket, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	if _, err := conn.Write(append([]byte(request), 0)); err != nil {
		return errkind.Wrap(errkind.ErrExternal, "tuner", "write", c.socket, err)
	}

	reply, err := readToNUL(conn)
	if err != nil {
		return errkind.Wrap(errkind.ErrExternal, "tuner", "read", c.socket, err)
	}
	if err := xml.Unmarshal(reply, out); err != nil {
		return errkind.Wrap(errkind.ErrExternal, "tuner", "decode", c.socket, err)
	}
	return nil
}

func readToNUL(conn net.Conn) ([]byte, error) {
	var buf bytes.Buffer
	chunk := make([]byte, 4096)
	for {
		n, err := conn.Read(chunk)
		if n > 0 {
			if i := bytes.IndexByte(chunk[:n], 0); i >= 0 {
				buf.Write(chunk[:i])
				return buf.Bytes(), nil
			}
			buf.Write(chunk[:n])
		}
		if err != nil {
			return nil, err
		}
	}
}
