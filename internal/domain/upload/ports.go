package upload

import "context"

// CredentialIssuer obtains a write credential for one key.
type CredentialIssuer interface {
	IssueWriteCredential(ctx context.Context, key StorageKey, contentType string) (WriteCredential, error)
}

// Transfer writes the content bytes using a credential. Non-2xx outcomes are returned as
// an *Error of kind ErrTransferFailed.
type Transfer interface {
	Transfer(ctx context.Context, cred WriteCredential, content Content, contentType string) (TransferOutcome, error)
}

// Oracle answers duplicate and tag queries. Failures are folded into Unavailable.
type Oracle interface {
	QueryTag(ctx context.Context, filename string) OracleResult
}

// StatusSink receives every status emitted by an Orchestrator.
type StatusSink interface {
	Publish(status Status)
}

// SinkFunc adapts a function to StatusSink.
type SinkFunc func(Status)

func (f SinkFunc) Publish(status Status) { f(status) }
