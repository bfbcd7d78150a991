package sandbox

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	fc "github.com/firecracker-microvm/firecracker-go-sdk"
	"github.com/firecracker-microvm/firecracker-go-sdk/client/models"
)

// MachineConfig describes the host paths and resource shape every
// microVM is booted with. Runtime fills in per-container identity
// (VMID, socket path, vsock CID) on top of this template.
type MachineConfig struct {
	KernelPath string
	RootFSPath string
	VCPUs      int64
	MemSizeMB  int64
}

// DefaultMachineConfig mirrors the pool's per-language defaults,
// applied here per-group instead since builder-6 has one rootfs
// image per container rather than per language.
func DefaultMachineConfig() MachineConfig {
	return MachineConfig{VCPUs: 1, MemSizeMB: 512}
}

// FirecrackerRuntime boots one microVM per container, keyed by the
// supervisor-assigned container id.
type FirecrackerRuntime struct {
	template MachineConfig

	mu       sync.Mutex
	cidCount uint32
	machines map[string]*fc.Machine
	sockets  map[string]string
}

// NewFirecrackerRuntime constructs a runtime that boots VMs from
// template, overriding RootFSPath per call when image is supplied.
func NewFirecrackerRuntime(template MachineConfig) *FirecrackerRuntime {
	if template.VCPUs <= 0 {
		template.VCPUs = DefaultMachineConfig().VCPUs
	}
	if template.MemSizeMB <= 0 {
		template.MemSizeMB = DefaultMachineConfig().MemSizeMB
	}
	return &FirecrackerRuntime{
		template: template,
		machines: make(map[string]*fc.Machine),
		sockets:  make(map[string]string),
	}
}

// Start implements Runtime by booting a microVM for id, using image
// as the rootfs path override when non-empty.
func (r *FirecrackerRuntime) Start(ctx context.Context, id, image string) error {
	rootfs := image
	if rootfs == "" {
		rootfs = r.template.RootFSPath
	}
	if rootfs == "" {
		return fmt.Errorf("sandbox: no rootfs image configured for container %s", id)
	}

	workDir := filepath.Join(os.TempDir(), "builder6-sandbox", id)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return fmt.Errorf("sandbox: create work dir: %w", err)
	}
	socketPath := filepath.Join(workDir, "api.sock")

	r.mu.Lock()
	r.cidCount++
	cid := r.cidCount
	r.mu.Unlock()

	vsockPath := socketPath + "_vsock"
	cfg := fc.Config{
		SocketPath:      socketPath,
		KernelImagePath: r.template.KernelPath,
		Drives: []models.Drive{{
			DriveID:      fc.String(id),
			PathOnHost:   fc.String(rootfs),
			IsRootDevice: fc.Bool(true),
			IsReadOnly:   fc.Bool(false),
		}},
		MachineCfg: models.MachineConfiguration{
			VcpuCount:  fc.Int64(r.template.VCPUs),
			MemSizeMib: fc.Int64(r.template.MemSizeMB),
		},
		VsockDevices: []fc.VsockDevice{{Path: vsockPath, CID: cid}},
	}

	firecrackerBin, err := exec.LookPath("firecracker")
	if err != nil {
		return fmt.Errorf("sandbox: firecracker binary not found: %w", err)
	}
	cmd := fc.VMCommandBuilder{}.WithBin(firecrackerBin).WithSocketPath(socketPath).Build(ctx)

	machine, err := fc.NewMachine(ctx, cfg, fc.WithProcessRunner(cmd))
	if err != nil {
		return fmt.Errorf("sandbox: create machine for %s: %w", id, err)
	}
	if err := machine.Start(ctx); err != nil {
		return fmt.Errorf("sandbox: start machine for %s: %w", id, err)
	}

	r.mu.Lock()
	r.machines[id] = machine
	r.sockets[id] = socketPath
	r.mu.Unlock()
	return nil
}

// Stop implements Runtime, shutting down the microVM for id.
func (r *FirecrackerRuntime) Stop(ctx context.Context, id string) error {
	r.mu.Lock()
	machine, ok := r.machines[id]
	delete(r.machines, id)
	delete(r.sockets, id)
	r.mu.Unlock()
	if !ok {
		return nil
	}

	stopCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := machine.Shutdown(stopCtx); err != nil {
		return machine.StopVMM()
	}
	return nil
}

// VsockPathFor returns the guest's vsock Unix-domain socket for id,
// the same "<api-socket>_vsock" convention the VM uses, for
// VsockScriptExecutor to dial.
func (r *FirecrackerRuntime) VsockPathFor(id string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	socketPath, ok := r.sockets[id]
	if !ok {
		return "", false
	}
	return socketPath + "_vsock", true
}
