package ibmq

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/qbridge-io/qbridge/internal/domain/model"
)

func TestCircuitToQASM_Bell(t *testing.T) {
	qasm := circuitToQASM(model.BellCircuit())

	expected := `OPENQASM 3.0;
include "stdgates.inc";
qubit[2] q;
bit[2] c;

h q[0];
cx q[0], q[1];

c = measure q;
`
	assert.Equal(t, expected, qasm)
}

func TestCircuitToQASM_SingleQubit(t *testing.T) {
	qasm := circuitToQASM(model.Circuit{
		NumQubits: 1,
		Gates:     []model.GateOp{{Name: "x", Qubits: []int{0}}},
	})

	assert.Contains(t, qasm, "qubit[1] q;")
	assert.Contains(t, qasm, "x q[0];")
	assert.Contains(t, qasm, "c = measure q;")
}
