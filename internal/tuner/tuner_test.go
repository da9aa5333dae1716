package tuner_test

import (
	"bytes"
	"context"
	"errors"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"librarian/internal/errkind"
	"librarian/internal/tuner"
)

// serveOnce answers a single NUL-framed request with the canned reply.
func serveOnce(t *testing.T, socket string, reply string, gotRequest chan<- string) {
	t.Helper()
	listener, err := net.Listen("unix", socket)
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var buf bytes.Buffer
		chunk := make([]byte, 1024)
		for {
			n, err := conn.Read(chunk)
			if n > 0 {
				if i := bytes.IndexByte(chunk[:n], 0); i >= 0 {
					buf.Write(chunk[:i])
					break
				}
				buf.Write(chunk[:n])
			}
			if err != nil {
				return
			}
		}
		if gotRequest != nil {
			gotRequest <- buf.String()
		}
		_, _ = conn.Write(append([]byte(reply), 0))
	}()
}

func TestGetStatusParsesSignalState(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ondd.ctrl")
	serveOnce(t, socket, `<response>
<tuner><lock>yes</lock><signal>78</signal><snr>12.5</snr></tuner>
<streams><stream><bitrate>88000</bitrate></stream></streams>
</response>`, nil)

	client := tuner.New(socket, time.Second)
	status, err := client.GetStatus(context.Background())
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !status.HasLock() || status.Signal != 78 || status.SNR != 12.5 {
		t.Fatalf("status = %+v", status)
	}
	if status.Bitrate != 88000 {
		t.Fatalf("bitrate = %d", status.Bitrate)
	}
}

func TestGetTransfersParsesList(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ondd.ctrl")
	serveOnce(t, socket, `<response><streams><stream><transfers>
<transfer><path>0caf49e00758223b089b48b00e17a7bd.zip</path><block_received>5</block_received><block_count>10</block_count><complete>false</complete></transfer>
</transfers></stream></streams></response>`, nil)

	client := tuner.New(socket, time.Second)
	transfers, err := client.GetTransfers(context.Background())
	if err != nil {
		t.Fatalf("GetTransfers: %v", err)
	}
	if len(transfers) != 1 {
		t.Fatalf("transfers = %v", transfers)
	}
	if transfers[0].Block != 5 || transfers[0].BlockCount != 10 || transfers[0].Complete {
		t.Fatalf("transfer = %+v", transfers[0])
	}
}

func TestSetSettingsSendsDocument(t *testing.T) {
	socket := filepath.Join(t.TempDir(), "ondd.ctrl")
	requests := make(chan string, 1)
	serveOnce(t, socket, `<response><code>204</code></response>`, requests)

	client := tuner.New(socket, time.Second)
	err := client.SetSettings(context.Background(), tuner.Settings{
		Frequency:    1577,
		SymbolRate:   23000,
		Delivery:     "DVB-S2",
		Polarization: "v",
	})
	if err != nil {
		t.Fatalf("SetSettings: %v", err)
	}

	select {
	case request := <-requests:
		if !strings.Contains(request, "<frequency>1577</frequency>") {
			t.Fatalf("request = %s", request)
		}
	case <-time.After(time.Second):
		t.Fatal("request never arrived")
	}
}

func TestUnreachableSocketIsExternalFailure(t *testing.T) {
	client := tuner.New(filepath.Join(t.TempDir(), "absent.ctrl"), 100*time.Millisecond)
	_, err := client.GetStatus(context.Background())
	if !errors.Is(err, errkind.ErrExternal) {
		t.Fatalf("err = %v, want external", err)
	}
}
