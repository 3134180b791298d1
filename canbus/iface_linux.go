//go:build linux

package canbus

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"syscall"
	"unsafe"
)

// Helpers for preparing a CAN network interface before dialing SocketCAN:
// bit-rate configuration and IFF_UP handling. All of them need
// CAP_NET_ADMIN and fail with EPERM without it.

const (
	ifNameSize   = 16     // IFNAMSIZ
	siocGIFFlags = 0x8913 // SIOCGIFFLAGS
	siocSIFFlags = 0x8914 // SIOCSIFFLAGS
	iffUp        = 0x1    // IFF_UP
)

// ifreq mirrors struct ifreq for flag ioctls.
type ifreq struct {
	name  [ifNameSize]byte
	flags uint16
	_     [22]byte
}

func checkIfaceName(name string) error {
	if name == "" || len(name) >= ifNameSize {
		return fmt.Errorf("canbus: invalid interface name %q", name)
	}
	return nil
}

// flagsIoctl performs one SIOCGIFFLAGS/SIOCSIFFLAGS round on a throwaway
// datagram socket and returns the resulting flags.
func flagsIoctl(req uintptr, name string, flags uint16) (uint16, error) {
	if err := checkIfaceName(name); err != nil {
		return 0, err
	}
	fd, err := syscall.Socket(syscall.AF_INET, syscall.SOCK_DGRAM, 0)
	if err != nil {
		return 0, err
	}
	defer syscall.Close(fd)

	var ifr ifreq
	copy(ifr.name[:], name)
	ifr.flags = flags
	if _, _, errno := syscall.Syscall(syscall.SYS_IOCTL,
		uintptr(fd), req, uintptr(unsafe.Pointer(&ifr))); errno != 0 {
		return 0, errno
	}
	return ifr.flags, nil
}

// IsInterfaceUp reports whether the interface has IFF_UP set.
func IsInterfaceUp(name string) (bool, error) {
	flags, err := flagsIoctl(siocGIFFlags, name, 0)
	if err != nil {
		return false, err
	}
	return flags&iffUp != 0, nil
}

// SetInterfaceUp raises the interface if it is not already up.
func SetInterfaceUp(name string) error {
	flags, err := flagsIoctl(siocGIFFlags, name, 0)
	if err != nil || flags&iffUp != 0 {
		return err
	}
	_, err = flagsIoctl(siocSIFFlags, name, flags|iffUp)
	return err
}

// SetInterfaceDown lowers the interface if it is up.
func SetInterfaceDown(name string) error {
	flags, err := flagsIoctl(siocGIFFlags, name, 0)
	if err != nil || flags&iffUp == 0 {
		return err
	}
	_, err = flagsIoctl(siocSIFFlags, name, flags&^iffUp)
	return err
}

// RequireRootOrCapNetAdmin rewraps EPERM with a hint that the binary needs
// CAP_NET_ADMIN.
func RequireRootOrCapNetAdmin(err error) error {
	if errors.Is(err, syscall.EPERM) {
		return fmt.Errorf("operation requires CAP_NET_ADMIN (or root): %w", err)
	}
	return err
}

// SetInterfaceBitrate sets the arbitration bit-rate through iproute2. Most
// drivers only accept the change while the interface is down.
func SetInterfaceBitrate(name string, bitrate uint32) error {
	if err := checkIfaceName(name); err != nil {
		return err
	}
	out, err := exec.Command("ip", "link", "set", "dev", name,
		"type", "can", "bitrate", strconv.FormatUint(uint64(bitrate), 10)).CombinedOutput()
	if err != nil {
		return RequireRootOrCapNetAdmin(
			fmt.Errorf("canbus: ip link set %s: %w; output: %s", name, err, out))
	}
	return nil
}
