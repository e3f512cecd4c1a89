package ibmq

import (
	"fmt"
	"strings"

	"github.com/qbridge-io/qbridge/internal/domain/model"
)

// circuitToQASM serializes a circuit to OpenQASM 3.0, the format the
// runtime API accepts. Gate names in the model are already QASM names;
// all qubits are measured into the classical register at the end.
func circuitToQASM(c model.Circuit) string {
	var b strings.Builder

	fmt.Fprintf(&b, "OPENQASM 3.0;\ninclude \"stdgates.inc\";\nqubit[%d] q;\nbit[%d] c;\n\n", c.NumQubits, c.NumQubits)

	for _, gate := range c.Gates {
		b.WriteString(gate.Name)
		for i, q := range gate.Qubits {
			if i > 0 {
				b.WriteString(",")
			}
			fmt.Fprintf(&b, " q[%d]", q)
		}
		b.WriteString(";\n")
	}

	b.WriteString("\nc = measure q;\n")
	return b.String()
}
