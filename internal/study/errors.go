package study

import "fmt"

// MissingVariableError reports a requested name absent from a solution
type MissingVariableError struct {
	Name string
}

func (e *MissingVariableError) Error() string {
	return fmt.Sprintf("missing variable %q in solution", e.Name)
}

// AlreadyWrittenError reports a second write to a write-once slot
type AlreadyWrittenError struct {
	Key  Key
	What string
}

func (e *AlreadyWrittenError) Error() string {
	return fmt.Sprintf("%s for %s already written", e.What, e.Key)
}

// UnknownCellError reports a key that is not part of the catalog
type UnknownCellError struct {
	Key Key
}

func (e *UnknownCellError) Error() string {
	return fmt.Sprintf("cell %s is not in the catalog", e.Key)
}

// UnboundQuantityError reports a typed quantity the assembled model does not expose
type UnboundQuantityError struct {
	Quantity Quantity
	Reason   string
}

func (e *UnboundQuantityError) Error() string {
	return fmt.Sprintf("quantity %s is not bound: %s", e.Quantity, e.Reason)
}

// NotAugmentedError reports a record written to the table without outputs
type NotAugmentedError struct {
	Key Key
}

func (e *NotAugmentedError) Error() string {
	return fmt.Sprintf("record for %s has no outputs", e.Key)
}
