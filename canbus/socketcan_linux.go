//go:build linux

package canbus

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
	"time"
	"unsafe"
)

// Linux SocketCAN constants absent from the syscall package.
const (
	afCAN  = 29
	canRaw = 1
)

// socketCANBus implements Bus over a raw AF_CAN socket. The fd is kept in
// non-blocking mode; Send and Receive poll with select(2) so the context
// can interrupt them.
type socketCANBus struct {
	fd   int
	file *os.File
	done chan struct{}
}

// DialSocketCAN opens a raw CAN socket bound to the named interface
// (e.g. "can0").
func DialSocketCAN(name string) (Bus, error) {
	fd, err := syscall.Socket(afCAN, syscall.SOCK_RAW, canRaw)
	if err != nil {
		return nil, fmt.Errorf("canbus: socket: %w", err)
	}
	if err := bindCAN(fd, name); err != nil {
		syscall.Close(fd)
		return nil, err
	}
	if err := syscall.SetNonblock(fd, true); err != nil {
		syscall.Close(fd)
		return nil, fmt.Errorf("canbus: set nonblock: %w", err)
	}
	// poll() below uses select(2), which cannot watch fds past FD_SETSIZE.
	if fd >= syscall.FD_SETSIZE {
		syscall.Close(fd)
		return nil, fmt.Errorf("canbus: fd %d exceeds select(2) limit %d", fd, syscall.FD_SETSIZE-1)
	}
	return &socketCANBus{
		fd:   fd,
		file: os.NewFile(uintptr(fd), name),
		done: make(chan struct{}),
	}, nil
}

// bindCAN binds the socket to the interface using the sockaddr_can layout.
// The struct is reproduced here because syscall has no SockaddrCAN.
func bindCAN(fd int, name string) error {
	ifc, err := net.InterfaceByName(name)
	if err != nil {
		return fmt.Errorf("canbus: interface %s: %w", name, err)
	}
	type sockaddrCAN struct {
		family  uint16
		_       uint16
		ifindex int32
		addr    [8]byte
	}
	sa := sockaddrCAN{family: afCAN, ifindex: int32(ifc.Index)}
	if _, _, errno := syscall.Syscall(syscall.SYS_BIND,
		uintptr(fd), uintptr(unsafe.Pointer(&sa)), unsafe.Sizeof(sa)); errno != 0 {
		return fmt.Errorf("canbus: bind %s: %w", name, errno)
	}
	return nil
}

func (s *socketCANBus) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	// The file owns the fd.
	return s.file.Close()
}

// Send writes one frame in the kernel can_frame layout.
func (s *socketCANBus) Send(ctx context.Context, frame Frame) error {
	buf, err := frame.MarshalBinary()
	if err != nil {
		return err
	}
	for {
		n, werr := syscall.Write(s.fd, buf)
		switch {
		case werr == nil && n == len(buf):
			return nil
		case werr == nil:
			return errors.New("canbus: short write")
		case werr == syscall.EAGAIN || werr == syscall.EWOULDBLOCK:
			if err := s.poll(ctx, writable); err != nil {
				return err
			}
		default:
			return werr
		}
	}
}

// Receive reads one frame and stamps it with the local receive time.
func (s *socketCANBus) Receive(ctx context.Context) (Frame, error) {
	buf := make([]byte, 16)
	for {
		n, rerr := syscall.Read(s.fd, buf)
		switch {
		case rerr == nil && n == len(buf):
			var f Frame
			if err := f.UnmarshalBinary(buf); err != nil {
				return Frame{}, err
			}
			f.Timestamp = time.Now()
			return f, nil
		case rerr == nil:
			return Frame{}, errors.New("canbus: short read")
		case rerr == syscall.EAGAIN || rerr == syscall.EWOULDBLOCK:
			if err := s.poll(ctx, readable); err != nil {
				return Frame{}, err
			}
		default:
			return Frame{}, rerr
		}
	}
}

type pollDir int

const (
	readable pollDir = iota
	writable
)

// addFD marks the fd in a select set, refusing fds outside the fixed
// FD_SETSIZE bit array instead of indexing past it.
func addFD(set *syscall.FdSet, fd int) error {
	if fd < 0 || fd >= syscall.FD_SETSIZE {
		return fmt.Errorf("canbus: fd %d outside select(2) range 0..%d", fd, syscall.FD_SETSIZE-1)
	}
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
	return nil
}

// poll blocks until the fd is ready in the given direction, the bus closes,
// or the context ends. Without a context deadline it wakes every 50 ms to
// re-check cancellation.
func (s *socketCANBus) poll(ctx context.Context, dir pollDir) error {
	for {
		select {
		case <-s.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		tv := syscall.Timeval{Usec: 50_000}
		if deadline, ok := ctx.Deadline(); ok {
			left := time.Until(deadline)
			if left <= 0 {
				return ctx.Err()
			}
			tv = syscall.NsecToTimeval(left.Nanoseconds())
		}

		var rset, wset syscall.FdSet
		set := &rset
		if dir == writable {
			set = &wset
		}
		if err := addFD(set, s.fd); err != nil {
			return err
		}

		_, err := syscall.Select(s.fd+1, &rset, &wset, nil, &tv)
		switch {
		case err == nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		case err == syscall.EINTR:
			continue
		default:
			return err
		}
	}
}
