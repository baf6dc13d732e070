// Package monitoring turns a simulation into a server and allows external
// inspection of the kernel while it runs.
package monitoring

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"

	"github.com/sarchlab/musim/sim"
)

// Monitor can turn a simulation into a server and allows external
// monitoring of the simulation.
type Monitor struct {
	kernel     *sim.Kernel
	portNumber int

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n",
			portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterKernel registers the kernel that drives the simulation.
func (m *Monitor) RegisterKernel(k *sim.Kernel) {
	m.kernel = k
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:    sim.GetIDGenerator().Generate(),
		Name:  name,
		Total: total,
	}

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

// StartServer starts the monitor as a web server.
func (m *Monitor) StartServer(openBrowser bool) {
	r := mux.NewRouter()

	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/status", m.status)
	r.HandleFunc("/api/tasks", m.listTasks)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/state", m.dumpState)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)

	listener, err := net.Listen("tcp",
		fmt.Sprintf("localhost:%d", m.portNumber))
	if err != nil {
		panic(err)
	}

	url := "http://" + listener.Addr().String()
	logrus.WithField("url", url).Info("monitoring server started")

	if openBrowser {
		_ = browser.OpenURL(url)
	}

	go func() {
		err := http.Serve(listener, r)
		if err != nil {
			panic(err)
		}
	}()
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	fmt.Fprintf(w, "{\"now\":%.10f}", m.kernel.CurrentTime())
}

func (m *Monitor) status(w http.ResponseWriter, _ *http.Request) {
	status := m.kernel.Status()
	status.Tasks = nil

	err := json.NewEncoder(w).Encode(status)
	dieOnErr(err)
}

func (m *Monitor) listTasks(w http.ResponseWriter, _ *http.Request) {
	status := m.kernel.Status()

	err := json.NewEncoder(w).Encode(status.Tasks)
	dieOnErr(err)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	err := json.NewEncoder(w).Encode(m.progressBars)
	dieOnErr(err)
}

func (m *Monitor) dumpState(w http.ResponseWriter, _ *http.Request) {
	status := m.kernel.Status()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(status)
	serializer.SetMaxDepth(2)

	err := serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	proc, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := proc.CPUPercent()
	dieOnErr(err)

	memorySize, err := proc.MemoryInfo()
	dieOnErr(err)

	fmt.Fprintf(w, "{\"cpu_percent\":%f,\"memory_size\":%d}",
		cpuPercent, memorySize.RSS)
}

func dieOnErr(err error) {
	if err != nil {
		logrus.WithError(err).Fatal("monitoring server error")
	}
}
