package cmd

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/sarchlab/dramcal/dfii"
	"github.com/sarchlab/dramcal/dram"
	"github.com/sarchlab/dramcal/hooking"
	"github.com/sarchlab/dramcal/recording"
	"github.com/sarchlab/dramcal/regmap"
	"github.com/sarchlab/dramcal/simdram"
	"github.com/sarchlab/dramcal/transport"
)

// session is an open connection to one controller.
type session struct {
	log      logr.Logger
	ctx      *dram.Context
	access   *transport.Hooked
	device   *simdram.Device
	recorder recording.DataRecorder
	record   *recording.Session
	closers  []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error {
	return f()
}

// openSession connects to the controller selected by the flags.
func openSession(cmd *cobra.Command) (*session, error) {
	s := &session{log: newLogger(cmd)}

	inner, delayer, err := s.connect(cmd)
	if err != nil {
		return nil, err
	}

	s.access = transport.NewHooked("Bridge", inner)

	if trace, _ := cmd.Flags().GetBool("trace"); trace {
		s.access.AcceptHook(hooking.HookFunc(s.traceAccess))
	}

	ddrBase, _ := cmd.Flags().GetUint32("ddr-base")
	coreBase, _ := cmd.Flags().GetUint32("core-base")
	phyBase, _ := cmd.Flags().GetUint32("phy-base")

	if s.device != nil {
		ddrBase, coreBase, phyBase = s.device.Bases()
	}

	b := dram.MakeBuilder().
		WithAccess(s.access).
		WithDDRBase(ddrBase).
		WithCoreBase(coreBase).
		WithPHYBase(phyBase).
		WithDelayer(delayer).
		WithLogger(s.log)
	if ecp5, _ := cmd.Flags().GetBool("ecp5-phy"); ecp5 {
		b = b.WithECP5PHY()
	}

	s.ctx = b.Build()

	if path, _ := cmd.Flags().GetString("record"); path != "" {
		if err := s.startRecording(path); err != nil {
			s.Close()
			return nil, err
		}
	}

	atexit.Register(s.releaseLines)

	return s, nil
}

func (s *session) connect(
	cmd *cobra.Command,
) (transport.RegisterAccess, dfii.Delayer, error) {
	port, _ := cmd.Flags().GetString("port")
	devmem, _ := cmd.Flags().GetString("devmem")
	sim, _ := cmd.Flags().GetBool("sim")
	cycleNs, _ := cmd.Flags().GetInt("cycle-ns")
	timer := dfii.Timer{CyclePeriod: time.Duration(cycleNs) * time.Nanosecond}

	selected := 0
	for _, on := range []bool{port != "", devmem != "", sim} {
		if on {
			selected++
		}
	}

	if selected != 1 {
		return nil, nil, errors.New("select exactly one of --port, --devmem and --sim")
	}

	switch {
	case sim:
		return s.connectSim(cmd)
	case devmem != "":
		access, err := s.connectDirect(cmd, devmem)
		return access, timer, err
	}

	baud, _ := cmd.Flags().GetInt("baud")

	link, err := dialLink(port, baud)
	if err != nil {
		return nil, nil, err
	}

	s.closers = append(s.closers, link)

	return transport.NewRemote(link), timer, nil
}

// dialLink opens a serial bridge, or a TCP bridge for tcp:// ports.
func dialLink(port string, baud int) (io.ReadWriteCloser, error) {
	if addr, ok := strings.CutPrefix(port, "tcp://"); ok {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", addr, err)
		}

		return conn, nil
	}

	return openSerial(port, baud)
}

func (s *session) connectSim(
	cmd *cobra.Command,
) (transport.RegisterAccess, dfii.Delayer, error) {
	s.device = simdram.MakeBuilder().Build()

	viaLink, _ := cmd.Flags().GetBool("sim-link")
	if !viaLink {
		return s.device, s.device, nil
	}

	host, device := net.Pipe()
	go func() {
		defer device.Close()

		if err := transport.Serve(device, s.device); err != nil {
			s.log.Error(err, "simulated bridge stopped")
		}
	}()

	s.closers = append(s.closers, device, host)

	return transport.NewRemote(host), s.device, nil
}

func (s *session) connectDirect(
	cmd *cobra.Command,
	path string,
) (transport.RegisterAccess, error) {
	ddrBase, _ := cmd.Flags().GetUint32("ddr-base")
	ddrSize, _ := cmd.Flags().GetUint32("ddr-size")
	coreBase, _ := cmd.Flags().GetUint32("core-base")
	phyBase, _ := cmd.Flags().GetUint32("phy-base")

	phySize := regmap.PHYSize
	if ecp5, _ := cmd.Flags().GetBool("ecp5-phy"); ecp5 {
		phySize = regmap.ECP5Size
	}

	direct, err := transport.OpenDirect(path,
		transport.Window{Base: ddrBase, Size: ddrSize},
		transport.Window{Base: coreBase, Size: regmap.DFIISize},
		transport.Window{Base: phyBase, Size: phySize},
	)
	if err != nil {
		return nil, err
	}

	s.closers = append(s.closers, direct)

	return direct, nil
}

func (s *session) startRecording(path string) error {
	recorder, err := recording.New(path)
	if err != nil {
		return err
	}

	s.recorder = recorder
	s.record = recording.NewSession(recorder)
	s.ctx.AcceptHook(s.record)
	s.closers = append(s.closers, closerFunc(recorder.Close))

	s.log.Info("recording session", "db", path+".sqlite3", "session", s.record.ID())

	return nil
}

func (s *session) traceAccess(ctx hooking.HookCtx) {
	a := ctx.Item.(transport.Access)

	op := "read"
	if ctx.Pos == transport.HookPosWrite {
		op = "write"
	}

	s.log.Info(op, "addr", fmt.Sprintf("0x%08x", a.Addr),
		"value", fmt.Sprintf("0x%08x", a.Value), "err", a.Err)
}

// releaseLines gives the command lines back to the controller if the process
// stops while they are under software control.
func (s *session) releaseLines() {
	seq := s.ctx.Sequencer()
	if seq.Mode() != dfii.ModeSoftware {
		return
	}

	if err := seq.SetHardwareControl(); err != nil {
		s.log.Error(err, "cannot return control to the controller")
	}
}

// Close releases the link, the mapping and the recorder.
func (s *session) Close() error {
	var errs []error

	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}

	s.closers = nil

	return errors.Join(errs...)
}
