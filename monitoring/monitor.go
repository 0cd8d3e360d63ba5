// Package monitoring serves an HTTP inspector for a running bring-up session.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/dramcal/calibration"
	"github.com/sarchlab/dramcal/hooking"
	"github.com/sarchlab/dramcal/monitoring/web"
	"github.com/sarchlab/dramcal/phy"
	"github.com/sarchlab/dramcal/regmap"
	"github.com/sarchlab/dramcal/transport"
)

// Target is a controller that can be inspected.
type Target interface {
	Name() string
	Access() transport.RegisterAccess
	CoreBase() uint32
	PHYBase() uint32
}

// Monitor turns a bring-up session into a web server that shows its
// registers, tasks and resource usage.
type Monitor struct {
	target      Target
	phyLayout   regmap.Layout
	portNumber  int
	openBrowser bool
	log         logr.Logger

	tasks  *hooking.InflightTracer
	counts *hooking.CountTracer

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
	taskBars         map[string]*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	m := &Monitor{
		phyLayout: regmap.PHYLayout(),
		log:       logr.Discard(),
		tasks:     hooking.NewInflightTracer(nil),
		counts:    hooking.NewCountTracer(),
		taskBars:  make(map[string]*ProgressBar),
	}

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		m.log.Info("port not allowed, using a random port instead",
			"port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser opens the monitor in a browser once it is listening.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithLogger sets the logger.
func (m *Monitor) WithLogger(log logr.Logger) *Monitor {
	m.log = log
	return m
}

// WithECP5Layout shows the delay-increment PHY registers instead of the
// read-delay ones.
func (m *Monitor) WithECP5Layout() *Monitor {
	m.phyLayout = regmap.ECP5Layout()
	return m
}

// RegisterTarget registers the controller to inspect and starts following
// its tasks and calibration progress.
func (m *Monitor) RegisterTarget(t Target) {
	m.target = t

	if h, ok := t.(hooking.Hookable); ok {
		h.AcceptHook(m.tasks)
		h.AcceptHook(m.counts)
		h.AcceptHook(hooking.HookFunc(m.trackProgress))
	}
}

// RegisterHookable counts the hook positions fired by h, for example the
// register accesses of a transport.Hooked.
func (m *Monitor) RegisterHookable(h hooking.Hookable) {
	h.AcceptHook(m.counts)
}

// sweeper is a target that knows how far its calibration sweeps.
type sweeper interface {
	MaxDelay() uint8
}

func (m *Monitor) trackProgress(ctx hooking.HookCtx) {
	switch ctx.Pos {
	case hooking.HookPosTaskStart:
		start := ctx.Item.(hooking.TaskStart)
		if start.Kind != hooking.TaskCalibration {
			return
		}

		laneSteps := uint64(phy.MaxReadDelay) + 1
		if d, ok := ctx.Domain.(sweeper); ok {
			laneSteps = uint64(d.MaxDelay()) + 1
		}

		bar := m.CreateProgressBar(start.What, laneSteps*calibration.NumLanes)
		bar.laneSteps = laneSteps

		m.progressBarsLock.Lock()
		m.taskBars[start.ID] = bar
		m.progressBarsLock.Unlock()
	case calibration.HookPosSample:
		sample := ctx.Item.(calibration.Sample)
		for _, bar := range m.activeTaskBars() {
			bar.Advance(sample.Lane)
		}
	case calibration.HookPosLaneDone:
		done := ctx.Item.(calibration.LaneDone)
		for _, bar := range m.activeTaskBars() {
			bar.CompleteLane(done.Lane)
		}
	case hooking.HookPosTaskEnd:
		end := ctx.Item.(hooking.TaskEnd)

		m.progressBarsLock.Lock()
		bar, ok := m.taskBars[end.ID]
		delete(m.taskBars, end.ID)
		m.progressBarsLock.Unlock()

		if ok {
			m.CompleteProgressBar(bar)
		}
	}
}

func (m *Monitor) activeTaskBars() []*ProgressBar {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]*ProgressBar, 0, len(m.taskBars))
	for _, b := range m.taskBars {
		bars = append(bars, b)
	}

	return bars
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := newProgressBar(name, total)

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

// Handler returns the router of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/context", m.serializeTarget)
	r.HandleFunc("/api/regs/{block}", m.readBlock)
	r.HandleFunc("/api/tasks", m.listTasks)
	r.HandleFunc("/api/counts", m.listCounts)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// Serve listens on the configured port and serves until ctx is done.
func (m *Monitor) Serve(ctx context.Context) error {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return fmt.Errorf("monitoring: listen: %w", err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring bring-up with %s\n", url)

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			m.log.Error(err, "cannot open browser")
		}
	}

	server := &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), time.Second)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)
	}()

	err = server.Serve(listener)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (m *Monitor) targetOr404(w http.ResponseWriter) Target {
	if m.target == nil {
		http.Error(w, "no target registered", http.StatusNotFound)
	}

	return m.target
}

func (m *Monitor) serializeTarget(w http.ResponseWriter, _ *http.Request) {
	target := m.targetOr404(w)
	if target == nil {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(target)
	serializer.SetMaxDepth(1)

	err := serializer.Serialize(w)
	if err != nil {
		m.log.Error(err, "serialize target")
	}
}

type registerRsp struct {
	Name   string `json:"name"`
	Offset uint32 `json:"offset"`
	Addr   uint32 `json:"addr"`
	Value  uint32 `json:"value"`
}

func (m *Monitor) readBlock(w http.ResponseWriter, r *http.Request) {
	target := m.targetOr404(w)
	if target == nil {
		return
	}

	var (
		layout regmap.Layout
		base   uint32
	)

	switch mux.Vars(r)["block"] {
	case "dfii":
		layout, base = regmap.DFIILayout(), target.CoreBase()
	case "phy":
		layout, base = m.phyLayout, target.PHYBase()
	default:
		http.Error(w, "unknown register block", http.StatusNotFound)
		return
	}

	regs := make([]registerRsp, 0, len(layout.Fields))

	for _, f := range layout.Fields {
		v, err := target.Access().Read(base + f.Offset)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		regs = append(regs, registerRsp{
			Name:   f.Name,
			Offset: f.Offset,
			Addr:   base + f.Offset,
			Value:  v,
		})
	}

	m.writeJSON(w, regs)
}

type tasksRsp struct {
	Inflight  []hooking.Task `json:"inflight"`
	Completed uint64         `json:"completed"`
	Failed    uint64         `json:"failed"`
}

func (m *Monitor) listTasks(w http.ResponseWriter, _ *http.Request) {
	completed, failed := m.tasks.Counts()

	m.writeJSON(w, tasksRsp{
		Inflight:  m.tasks.InflightTasks(),
		Completed: completed,
		Failed:    failed,
	})
}

func (m *Monitor) listCounts(w http.ResponseWriter, _ *http.Request) {
	counts := make(map[string]uint64)
	for _, name := range m.counts.Names() {
		counts[name] = m.counts.Count(&hooking.HookPos{Name: name})
	}

	m.writeJSON(w, counts)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memorySize, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if s := r.URL.Query().Get("ms"); s != "" {
		ms, err := strconv.Atoi(s)
		if err != nil || ms <= 0 {
			http.Error(w, "invalid duration", http.StatusBadRequest)
			return
		}

		duration = time.Duration(ms) * time.Millisecond
	}

	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(duration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if _, err := w.Write(data); err != nil {
		m.log.Error(err, "write response")
	}
}
