// SPDX-License-Identifier: MIT
package transform

import "github.com/janus-lang/janus-ir/ir"

// MatmulReluFusion returns the matmul+relu fusion pass (spec §4.5): a
// Tensor_Relu whose sole input is a Tensor_Matmul, both tenanted
// NPU_Tensor, is rewritten in place into a Tensor_FusedMatmulRelu —
// same node id, so every existing consumer keeps working unchanged —
// taking the matmul's own inputs and, when the relu carries no tensor
// metadata of its own, the matmul's (an elementwise op preserves shape).
// Cross-tenancy pairs are left alone. Idempotent by construction: once
// rewritten the node's Op is no longer Tensor_Relu, so a second run never
// matches it again (P7).
func MatmulReluFusion() Pass {
	return Pass{Name: "matmul-relu-fusion", Apply: matmulReluFusionApply}
}

func matmulReluFusionApply(g *ir.Graph) (bool, error) {
	nodes := g.Nodes()
	changed := false

	for i := range nodes {
		relu := &nodes[i]
		if relu.Op != ir.OpTensorRelu || relu.Tenancy != ir.NPUTensor || len(relu.Inputs) != 1 {
			continue
		}
		matmul := &nodes[relu.Inputs[0]]
		if matmul.Op != ir.OpTensorMatmul || matmul.Tenancy != ir.NPUTensor {
			continue
		}

		relu.Op = ir.OpTensorFusedMatmulRelu
		relu.Inputs = append([]int(nil), matmul.Inputs...)
		if relu.Tensor == nil && matmul.Tensor != nil {
			meta := *matmul.Tensor
			relu.Tensor = &meta
		}
		changed = true
	}

	return changed, nil
}
