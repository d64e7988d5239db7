package sim

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"k20rt/core"
)

// Scenario describes a simulated bus and the tasks that use it.
//
//	devices:
//	  - name: sensor
//	    address: 0x29
//	    init: [0xEA, 0xCC]
//	tasks:
//	  - name: poll
//	    steps:
//	      - {op: write, device: sensor, data: [0x00]}
//	      - {op: read, device: sensor, len: 2}
//	      - {op: delay, ms: 10}
type Scenario struct {
	Name    string       `yaml:"name"`
	Devices []DeviceSpec `yaml:"devices"`
	Tasks   []TaskSpec   `yaml:"tasks"`
	// MaxTicks bounds the simulated run time (default 1<<20).
	MaxTicks uint32 `yaml:"max_ticks"`
}

// DeviceSpec places a Memory target on the bus.
type DeviceSpec struct {
	Name       string  `yaml:"name"`
	Address    uint8   `yaml:"address"`
	Init       []uint8 `yaml:"init"`
	NackWrites bool    `yaml:"nack_writes"`
}

// TaskSpec is one task and the steps it runs in order.
type TaskSpec struct {
	Name   string `yaml:"name"`
	Steps  []Step `yaml:"steps"`
	Repeat int    `yaml:"repeat"`
}

// Step is one operation: write, read or delay.
type Step struct {
	Op      string  `yaml:"op"`
	Device  string  `yaml:"device"`
	Address uint8   `yaml:"address"`
	Data    []uint8 `yaml:"data"`
	Len     int     `yaml:"len"`
	Ms      uint32  `yaml:"ms"`
}

// Report is the outcome of a scenario run.
type Report struct {
	Name    string
	Results []StepResult
	Elapsed core.TimeDelta
	Devices map[string]*Memory
}

// StepResult records one executed step.
type StepResult struct {
	Task string
	Op   string
	Data []byte
	Err  error
	At   core.Time
}

func (r StepResult) String() string {
	s := fmt.Sprintf("%8d %-10s %-5s", uint32(r.At), r.Task, r.Op)
	if len(r.Data) > 0 {
		s += fmt.Sprintf(" % x", r.Data)
	}
	if r.Err != nil {
		s += " err=" + r.Err.Error()
	}
	return s
}

// LoadScenario reads a scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses YAML scenario data and applies defaults.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	applyDefaults(&s)
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// applyDefaults fills in missing values
func applyDefaults(s *Scenario) {
	if s.Name == "" {
		s.Name = "scenario"
	}
	if s.MaxTicks == 0 {
		s.MaxTicks = 1 << 20
	}
	for i := range s.Tasks {
		task := &s.Tasks[i]
		if task.Name == "" {
			task.Name = fmt.Sprintf("task%d", i)
		}
		if task.Repeat == 0 {
			task.Repeat = 1
		}
		for j := range task.Steps {
			step := &task.Steps[j]
			if step.Op == "read" && step.Len == 0 {
				step.Len = 1
			}
		}
	}
}

func (s *Scenario) validate() error {
	devices := make(map[string]bool)
	for _, d := range s.Devices {
		if d.Address > 0x7F {
			return fmt.Errorf("device %q: address 0x%02x is not 7-bit", d.Name, d.Address)
		}
		devices[d.Name] = true
	}
	for _, task := range s.Tasks {
		for j, step := range task.Steps {
			switch step.Op {
			case "write", "read":
				if step.Device != "" && !devices[step.Device] {
					return fmt.Errorf("task %q step %d: unknown device %q", task.Name, j, step.Device)
				}
			case "delay":
			default:
				return fmt.Errorf("task %q step %d: unknown op %q", task.Name, j, step.Op)
			}
		}
	}
	return nil
}

// Run executes the scenario on a fresh board. If the board stalls the
// error wraps ErrStalled and the report holds only the steps that finished.
func (s *Scenario) Run() (*Report, error) {
	board := NewBoard()
	defer board.Close()
	board.MaxTicks = s.MaxTicks

	report := &Report{Name: s.Name, Devices: make(map[string]*Memory)}
	addrs := make(map[string]core.Address)
	for _, d := range s.Devices {
		mem := NewMemory(d.Init)
		mem.SetNackWrites(d.NackWrites)
		board.Bus.AddTarget(core.Address(d.Address), mem)
		report.Devices[d.Name] = mem
		addrs[d.Name] = core.Address(d.Address)
	}

	ref := board.Timebase.Acquire()
	defer ref.Release()
	start := board.Timebase.CurrentTime(ref)

	for _, task := range s.Tasks {
		board.Spawn(task.Name, func() {
			for n := 0; n < task.Repeat; n++ {
				for _, step := range task.Steps {
					r := runStep(board, addrs, step)
					r.Task = task.Name
					r.At = board.Timebase.CurrentTime(ref)
					// tasks never run concurrently
					report.Results = append(report.Results, r)
				}
			}
		})
	}

	if err := board.Run(); err != nil {
		return report, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	report.Elapsed = board.Timebase.CurrentTime(ref).Sub(start)
	return report, nil
}

func runStep(board *Board, addrs map[string]core.Address, step Step) StepResult {
	r := StepResult{Op: step.Op}
	addr := core.Address(step.Address)
	if step.Device != "" {
		addr = addrs[step.Device]
	}

	switch step.Op {
	case "delay":
		board.Timebase.Delay(core.Milliseconds(step.Ms))
	case "write":
		ctx := board.I2C.Start()
		r.Data = append([]byte(nil), step.Data...)
		r.Err = ctx.Write(addr, step.Data)
		ctx.Close()
	case "read":
		ctx := board.I2C.Start()
		buf := make([]byte, step.Len)
		r.Err = ctx.Read(addr, buf)
		ctx.Close()
		if r.Err == nil {
			r.Data = buf
		}
	}
	return r
}
