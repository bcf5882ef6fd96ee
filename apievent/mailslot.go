package apievent

import (
	"fmt"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"

	"kneeboard.dev/core/internal/errs"
)

// CreateMailslotW is not wrapped by golang.org/x/sys/windows, so it
// is called directly via a lazy DLL handle, matching the teacher's
// (cogentcore.org/core cmd/core/cmd/registry_windows.go) convention
// for the handful of Win32 APIs the package doesn't expose.
var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procCreateMailslotW  = modkernel32.NewProc("CreateMailslotW")
)

const mailslotWaitForeverTimeout = 0xFFFFFFFF

func createMailslot(name *uint16, maxMessageSize, readTimeoutMs uint32) (windows.Handle, error) {
	r1, _, err := procCreateMailslotW.Call(
		uintptr(unsafe.Pointer(name)),
		uintptr(maxMessageSize),
		uintptr(readTimeoutMs),
		0,
	)
	h := windows.Handle(r1)
	if h == windows.InvalidHandle {
		return h, err
	}
	return h, nil
}

// MailslotName returns the named, one-way mailslot path for the given
// reverse-domain + protocol suffix (spec §6):
// \\.\mailslot\<reverse-domain>.events.v1.3
func MailslotName(reverseDomain, protocolSuffix string) string {
	return fmt.Sprintf(`\\.\mailslot\%s.events.%s`, reverseDomain, protocolSuffix)
}

// MaxPacketSize bounds a single mailslot message (spec §6).
const MaxPacketSize = 4096

// Server owns the read end of the mailslot and feeds decoded Events
// into an OrderedQueue.
type Server struct {
	handle windows.Handle
	queue  *OrderedQueue
}

// NewServer creates the mailslot (as the reader) and wires it to
// queue.
func NewServer(reverseDomain, protocolSuffix string, queue *OrderedQueue) (*Server, error) {
	name, err := windows.UTF16PtrFromString(MailslotName(reverseDomain, protocolSuffix))
	if err != nil {
		return nil, err
	}
	// readTimeoutMs: 0 = don't wait (non-blocking polling loop in
	// Serve), maxMessageSize: 0 = no limit enforced by the OS beyond
	// MaxPacketSize, which this package enforces itself.
	h, err := createMailslot(name, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("apievent: CreateMailslot: %w", err)
	}
	return &Server{handle: h, queue: queue}, nil
}

// Serve polls the mailslot until stop is closed, decoding each
// message and enqueueing it on the ordered queue. A too-small read
// buffer or an empty read are Transient (spec §7) and simply retried
// after a short delay.
func (s *Server) Serve(stop <-chan struct{}) error {
	buf := make([]byte, MaxPacketSize)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		n, err := readMailslot(s.handle, buf)
		if err != nil {
			if errs.IsTransient(err) {
				time.Sleep(20 * time.Millisecond)
				continue
			}
			return err
		}
		if n == 0 {
			time.Sleep(5 * time.Millisecond)
			continue
		}

		ev, err := Unserialize(string(buf[:n]))
		if err != nil {
			errs.Log(fmt.Errorf("apievent: dropping malformed packet: %w", err))
			continue
		}
		s.queue.Enqueue(ev)
	}
}

// readMailslot issues a single non-blocking ReadFile, mapping
// ERROR_NO_DATA (mailslot empty) and ERROR_INSUFFICIENT_BUFFER
// (read buffer too small) to a Transient error per spec §7.
func readMailslot(h windows.Handle, buf []byte) (int, error) {
	var n uint32
	err := windows.ReadFile(h, buf, &n, nil)
	if err != nil {
		if err == windows.ERROR_HANDLE_EOF || err == windows.ERROR_INSUFFICIENT_BUFFER || isNoData(err) {
			return 0, errs.NewTransient(err)
		}
		return 0, err
	}
	return int(n), nil
}

func isNoData(err error) bool {
	errno, ok := err.(windows.Errno)
	return ok && errno == windows.Errno(232) // ERROR_NO_DATA
}

// Close closes the mailslot handle.
func (s *Server) Close() error {
	return windows.CloseHandle(s.handle)
}

// Client is the write end: games/tools write one packet per Send.
type Client struct {
	handle windows.Handle
}

// DialClient opens the write end of an existing mailslot.
func DialClient(reverseDomain, protocolSuffix string) (*Client, error) {
	name, err := windows.UTF16PtrFromString(MailslotName(reverseDomain, protocolSuffix))
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFile(name, windows.GENERIC_WRITE, windows.FILE_SHARE_READ, nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("apievent: open mailslot for write: %w", err)
	}
	return &Client{handle: h}, nil
}

// Send writes ev as one packet. Packets over MaxPacketSize are
// rejected before attempting the write.
func (c *Client) Send(ev Event) error {
	packet := ev.Serialize()
	if len(packet) > MaxPacketSize {
		return fmt.Errorf("apievent: packet of %d bytes exceeds MaxPacketSize", len(packet))
	}
	var written uint32
	return windows.WriteFile(c.handle, []byte(packet), &written, nil)
}

// Close closes the write handle.
func (c *Client) Close() error {
	return windows.CloseHandle(c.handle)
}
