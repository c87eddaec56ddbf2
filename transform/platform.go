// SPDX-License-Identifier: MIT
package transform

import "github.com/janus-lang/janus-ir/ir"

// PlatformLower returns the platform-lowering stub pass for one tenancy
// (spec §4.5): it raises Level to Low for every node carrying that
// tenancy, reserving room for future hardware-specific rewrites that
// this spec does not require (§1 Non-goals: instruction selection is
// delegated to a backend).
func PlatformLower(tenancy ir.Tenancy) Pass {
	return Pass{
		Name:  "platform-lower-" + tenancy.String(),
		Apply: func(g *ir.Graph) (bool, error) { return platformLowerApply(g, tenancy) },
	}
}

func platformLowerApply(g *ir.Graph, tenancy ir.Tenancy) (bool, error) {
	changed := false
	nodes := g.Nodes()
	for i := range nodes {
		n := &nodes[i]
		if n.Tenancy == tenancy && n.Level != ir.Low {
			n.Level = ir.Low
			changed = true
		}
	}
	return changed, nil
}

// AllPlatforms returns the four per-tenancy lowering passes in a fixed
// order (CPU_Serial, CPU_Parallel, NPU_Tensor, QPU_Quantum), convenient
// for wiring the full manager pipeline in one call.
func AllPlatforms() []Pass {
	return []Pass{
		PlatformLower(ir.CPUSerial),
		PlatformLower(ir.CPUParallel),
		PlatformLower(ir.NPUTensor),
		PlatformLower(ir.QPUQuantum),
	}
}
