package protocol

// SubSystem tags log lines with the component that emitted them.
type SubSystem string

const (
	Signing    SubSystem = "Signing"
	Validation SubSystem = "Validation"
	Settle     SubSystem = "Settle"
	Nonces     SubSystem = "Nonces"
	Accounting SubSystem = "Accounting"
	Config     SubSystem = "Config"
	Registry   SubSystem = "Registry"
)
