//go:build linux

package xfer

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// linux/spi/spidev.h
const (
	spiIOCWrMode        = 0x40016b01
	spiIOCWrBitsPerWord = 0x40016b03
	spiIOCWrMaxSpeedHz  = 0x40046b04
	spiIOCMessage1      = 0x40206b00
)

// BitsPerWord is the word size of the bridge link.
const BitsPerWord = 16

// spiIOCTransfer is struct spi_ioc_transfer.
type spiIOCTransfer struct {
	txBuf       uint64
	rxBuf       uint64
	length      uint32
	speedHz     uint32
	delayUsecs  uint16
	bitsPerWord uint8
	csChange    uint8
	txNbits     uint8
	rxNbits     uint8
	wordDelay   uint8
	pad         uint8
}

// SPIDev performs transfers on a Linux spidev device.
type SPIDev struct {
	Path  string
	Speed uint32

	lock sync.Mutex
	fd   int
}

// OpenSPIDev opens a spidev device in mode 0. speed 0 keeps the
// device default.
func OpenSPIDev(path string, speed uint32) (*SPIDev, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	d := &SPIDev{Path: path, Speed: speed, fd: fd}
	var mode, bits uint8 = 0, BitsPerWord
	if err = d.ioctl(spiIOCWrMode, unsafe.Pointer(&mode)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set mode %s: %w", path, err)
	}
	if err = d.ioctl(spiIOCWrBitsPerWord, unsafe.Pointer(&bits)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("set bits per word %s: %w", path, err)
	}
	if speed != 0 {
		if err = d.ioctl(spiIOCWrMaxSpeedHz, unsafe.Pointer(&speed)); err != nil {
			unix.Close(fd)
			return nil, fmt.Errorf("set speed %s: %w", path, err)
		}
	}
	return d, nil
}

// Transfer implements link.Transfer as one full-duplex SPI message.
func (d *SPIDev) Transfer(tx, rx []byte) error {
	if len(tx) != len(rx) || len(tx)%2 != 0 {
		return fmt.Errorf("spidev: invalid block size %d/%d", len(tx), len(rx))
	}
	xfer := spiIOCTransfer{
		txBuf:       uint64(uintptr(unsafe.Pointer(&tx[0]))),
		rxBuf:       uint64(uintptr(unsafe.Pointer(&rx[0]))),
		length:      uint32(len(tx)),
		speedHz:     d.Speed,
		bitsPerWord: BitsPerWord,
	}
	d.lock.Lock()
	defer d.lock.Unlock()
	err := d.ioctl(spiIOCMessage1, unsafe.Pointer(&xfer))
	runtime.KeepAlive(tx)
	runtime.KeepAlive(rx)
	return err
}

// Close implements io.Closer.
func (d *SPIDev) Close() error {
	return unix.Close(d.fd)
}

func (d *SPIDev) ioctl(req uintptr, arg unsafe.Pointer) error {
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(d.fd), req, uintptr(arg))
	if errno != 0 {
		return errno
	}
	return nil
}
