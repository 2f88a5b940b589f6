package integrity

import (
	"context"
	"net"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/teranos/refresh/errors"
)

// RuntimeProbe is a smoke check that the host can serve the dashboard:
// a loopback port can be bound and the project filesystem and memory
// report usable capacity.
type RuntimeProbe struct {
	Root string
}

// Name returns "runtime"
func (p *RuntimeProbe) Name() string { return "runtime" }

// Probe binds an ephemeral loopback port and reads disk and memory usage
func (p *RuntimeProbe) Probe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return errors.Wrap(err, "cannot bind a loopback port")
	}
	ln.Close()

	usage, err := disk.UsageWithContext(ctx, p.Root)
	if err != nil {
		return errors.Wrapf(err, "cannot read filesystem usage of %s", p.Root)
	}
	if usage.Total == 0 {
		return errors.Newf("filesystem of %s reports zero capacity", p.Root)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get memory stats")
	}
	if vm.Available == 0 {
		return errors.New("no memory available")
	}
	return nil
}
