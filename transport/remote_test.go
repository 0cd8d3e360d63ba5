package transport

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// scriptedLink records what is written and replays canned replies.
type scriptedLink struct {
	out       bytes.Buffer
	in        *bytes.Reader
	writeCap  int
	failWrite error
}

func (l *scriptedLink) Write(p []byte) (int, error) {
	if l.failWrite != nil {
		return 0, l.failWrite
	}

	if l.writeCap > 0 && len(p) > l.writeCap {
		l.out.Write(p[:l.writeCap])
		return l.writeCap, nil
	}

	return l.out.Write(p)
}

func (l *scriptedLink) Read(p []byte) (int, error) {
	return l.in.Read(p)
}

var _ = Describe("Remote", func() {
	var (
		link   *scriptedLink
		remote *Remote
	)

	BeforeEach(func() {
		link = &scriptedLink{in: bytes.NewReader(nil)}
		remote = NewRemote(link)
	})

	It("should send a write frame", func() {
		Expect(remote.Write(0x9004, 0xCAFEBABE)).To(Succeed())

		Expect(link.out.Bytes()).To(Equal([]byte{
			0x01, 0x01, 0x00, 0x00, 0x24, 0x01, 0xCA, 0xFE, 0xBA, 0xBE,
		}))
	})

	It("should send a read frame and decode the reply", func() {
		link.in = bytes.NewReader([]byte{0x00, 0x00, 0x00, 0x03})

		v, err := remote.Read(0x8000)

		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(3)))
		Expect(link.out.Bytes()).To(Equal([]byte{
			0x02, 0x01, 0x00, 0x00, 0x20, 0x00,
		}))
	})

	It("should report a short write", func() {
		link.writeCap = 4

		err := remote.Write(0x9004, 1)

		Expect(errors.Is(err, ErrShortTransfer)).To(BeTrue())
	})

	It("should report a short reply", func() {
		link.in = bytes.NewReader([]byte{0x00, 0x01})

		_, err := remote.Read(0x8000)

		Expect(errors.Is(err, ErrShortTransfer)).To(BeTrue())
	})

	It("should pass link errors through", func() {
		link.failWrite = io.ErrClosedPipe

		err := remote.Write(0x9004, 1)

		Expect(errors.Is(err, io.ErrClosedPipe)).To(BeTrue())
		Expect(errors.Is(err, ErrShortTransfer)).To(BeFalse())
	})
})

// failingTarget rejects every access.
type failingTarget struct{}

func (failingTarget) Read(addr uint32) (uint32, error) {
	return 0, fmt.Errorf("read 0x%08x: %w", addr, ErrOutOfRange)
}

func (failingTarget) Write(addr, _ uint32) error {
	return fmt.Errorf("write 0x%08x: %w", addr, ErrOutOfRange)
}

var _ = Describe("Serve", func() {
	It("should execute frames from a Remote against a target", func() {
		host, device := net.Pipe()
		target := NewMemory()

		done := make(chan error, 1)
		go func() {
			done <- Serve(device, target)
		}()

		remote := NewRemote(host)
		Expect(remote.Write(0x10000004, 0x12345678)).To(Succeed())

		v, err := remote.Read(0x10000004)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal(uint32(0x12345678)))

		Expect(host.Close()).To(Succeed())
		Eventually(done).Should(Receive(BeNil()))
	})

	It("should let the host fail when the target rejects a read", func() {
		host, device := net.Pipe()
		defer host.Close()

		done := make(chan error, 1)
		go func() {
			defer device.Close()
			done <- Serve(device, failingTarget{})
		}()

		remote := NewRemote(host)
		read := make(chan error, 1)
		go func() {
			_, err := remote.Read(0x4)
			read <- err
		}()

		Eventually(read).Should(Receive(HaveOccurred()))
		Eventually(done).Should(Receive(MatchError(ErrOutOfRange)))
	})

	It("should reject an unknown opcode", func() {
		link := &scriptedLink{
			in: bytes.NewReader([]byte{0x07, 0x01, 0, 0, 0, 0}),
		}

		err := Serve(link, NewMemory())

		Expect(errors.Is(err, ErrBadFrame)).To(BeTrue())
	})
})

var _ = Describe("Memory", func() {
	It("should read back written words and zero elsewhere", func() {
		m := NewMemory()
		Expect(m.Write(0x100, 7)).To(Succeed())

		Expect(m.Read(0x100)).To(Equal(uint32(7)))
		Expect(m.Read(0x104)).To(Equal(uint32(0)))
		Expect(m.Len()).To(Equal(1))
	})

	It("should reject misaligned addresses", func() {
		m := NewMemory()

		Expect(errors.Is(m.Write(0x101, 7), ErrMisaligned)).To(BeTrue())
	})
})
