// Package model contains the domain entities shared across adapters and services.
package model

// GateOp is a single gate application within a circuit. Qubits lists the
// wire indices the gate acts on; for two-qubit gates the first entry is the
// control.
type GateOp struct {
	Name   string
	Qubits []int
}

// Circuit is an ordered gate list over a fixed qubit register. All qubits
// are measured at the end of the circuit.
type Circuit struct {
	NumQubits int
	Gates     []GateOp
}

// BellCircuit returns the fixed two-qubit entangling circuit the service
// submits: Hadamard on qubit 0 followed by CNOT(0, 1), measure all.
// A fresh value is returned so callers cannot mutate a shared instance.
func BellCircuit() Circuit {
	return Circuit{
		NumQubits: 2,
		Gates: []GateOp{
			{Name: "h", Qubits: []int{0}},
			{Name: "cx", Qubits: []int{0, 1}},
		},
	}
}
