/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

//go:build linux

package conn

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// dial creates a nonblocking socket against address ("host:port"), applies
// the configured socket options, and issues connect(2). inProgress is true
// when the kernel reports EINPROGRESS, meaning completion must be
// discovered via poller writability.
func dial(address string, opt Options) (fd int, inProgress bool, err error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return -1, false, fmt.Errorf("conn: invalid address %q: %w", address, err)
	}

	ips, err := net.LookupIP(host)
	if err != nil || len(ips) == 0 {
		return -1, false, fmt.Errorf("conn: resolve %q: %w", host, err)
	}
	ip := ips[0]

	p, err := net.LookupPort("tcp", port)
	if err != nil {
		return -1, false, fmt.Errorf("conn: invalid port %q: %w", port, err)
	}

	var sa unix.Sockaddr
	domain := unix.AF_INET

	if ip4 := ip.To4(); ip4 != nil {
		var a unix.SockaddrInet4
		a.Port = p
		copy(a.Addr[:], ip4)
		sa = &a
	} else {
		domain = unix.AF_INET6
		var a unix.SockaddrInet6
		a.Port = p
		copy(a.Addr[:], ip.To16())
		sa = &a
	}

	fd, err = unix.Socket(domain, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return -1, false, fmt.Errorf("conn: socket: %w", err)
	}

	if err := applySockopts(fd, opt); err != nil {
		unix.Close(fd)
		return -1, false, err
	}

	err = unix.Connect(fd, sa)
	if err == nil {
		return fd, false, nil
	}
	if err == unix.EINPROGRESS {
		return fd, true, nil
	}

	unix.Close(fd)
	return -1, false, fmt.Errorf("conn: connect: %w", err)
}

func applySockopts(fd int, opt Options) error {
	if opt.NoDelay {
		if err := unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, 1); err != nil {
			return fmt.Errorf("conn: setsockopt TCP_NODELAY: %w", err)
		}
	}

	if opt.Linger != nil {
		l := &unix.Linger{Onoff: 1, Linger: int32(*opt.Linger)}
		if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, l); err != nil {
			return fmt.Errorf("conn: setsockopt SO_LINGER: %w", err)
		}
	}

	if opt.SendBuf > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, opt.SendBuf); err != nil {
			return fmt.Errorf("conn: setsockopt SO_SNDBUF: %w", err)
		}
	}

	if opt.RecvBuf > 0 {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, opt.RecvBuf); err != nil {
			return fmt.Errorf("conn: setsockopt SO_RCVBUF: %w", err)
		}
	}

	return nil
}

// socketError reads SO_ERROR, the mechanism by which a writable-but-still-
// connecting fd reports whether its nonblocking connect(2) actually
// succeeded.
func socketError(fd int) error {
	errno, err := unix.GetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_ERROR)
	if err != nil {
		return err
	}
	if errno != 0 {
		return unix.Errno(errno)
	}
	return nil
}

func closeFD(fd int) {
	_ = unix.Close(fd)
}

func writeFD(fd int, p []byte) (int, error) {
	return unix.Write(fd, p)
}

func readFD(fd int, p []byte) (int, error) {
	return unix.Read(fd, p)
}

var errWouldBlock = unix.EAGAIN
