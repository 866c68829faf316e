package constants

// DocStatus is the canonical processing state for rows in processed_documents.
type DocStatus string

// Stable values (store these exact strings in DB).
const (
	StatusPending        DocStatus = "PENDING"          // uploaded, not yet processed
	StatusWaitingForPair DocStatus = "WAITING_FOR_PAIR" // classified and parsed, complement not seen yet
	StatusCompleted      DocStatus = "COMPLETED"        // paired and case created
	StatusDuplicate      DocStatus = "DUPLICATE"        // paired but case number already existed
	StatusError          DocStatus = "ERROR"            // terminal dead-letter, operator retries manually
)

// IsTerminal reports whether a document in this state is done for good.
func (s DocStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusDuplicate || s == StatusError
}

// Claimable reports whether a document in this state may still be taken as a pair.
func (s DocStatus) Claimable() bool {
	return s == StatusPending || s == StatusWaitingForPair
}
