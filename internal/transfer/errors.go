package transfer

// Variant is a closed set of failure kinds. It is the wire-stable tag
// written to the failure log and to the JSON summary; consumers parse it
// without knowing anything about how hostpilot is implemented.
type Variant string

const (
	InvalidDirection              Variant = "InvalidDirection"
	UnsupportedGlobUsage          Variant = "UnsupportedGlobUsage"
	AliasNotFound                 Variant = "AliasNotFound"
	RemoteTargetMustBeDir         Variant = "RemoteTargetMustBeDir"
	LocalTargetMustBeDir          Variant = "LocalTargetMustBeDir"
	RemoteTargetParentMissing     Variant = "RemoteTargetParentMissing"
	LocalTargetParentMissing      Variant = "LocalTargetParentMissing"
	CreateRemoteDirFailed         Variant = "CreateRemoteDirFailed"
	CreateLocalDirFailed          Variant = "CreateLocalDirFailed"
	GlobNoMatches                 Variant = "GlobNoMatches"
	WorkerNoSession               Variant = "WorkerNoSession"
	WorkerNoSftp                  Variant = "WorkerNoSftp"
	SftpCreateFailed              Variant = "SftpCreateFailed"
	SshNoAddress                  Variant = "SshNoAddress"
	SshSessionCreateFailed        Variant = "SshSessionCreateFailed"
	SshHandshakeFailed            Variant = "SshHandshakeFailed"
	SshAuthFailed                 Variant = "SshAuthFailed"
	WorkerBuildSessionFailed      Variant = "WorkerBuildSessionFailed"
	MissingLocalSource            Variant = "MissingLocalSource"
	DownloadMultipleRemoteSources Variant = "DownloadMultipleRemoteSources"
	OperationFailed               Variant = "OperationFailed"
	WorkerIo                      Variant = "WorkerIo"
)

// TransferError is the Go analogue of original_source's TransferError enum:
// a closed Variant tag plus whichever optional context fields apply.
// It implements the error interface and is what the Failure Sink
// serializes, one per JSONL line.
type TransferError struct {
	Variant Variant `json:"variant"`
	Alias   string  `json:"alias,omitempty"`
	Addr    string  `json:"addr,omitempty"`
	Path    string  `json:"path,omitempty"`
	Pattern string  `json:"pattern,omitempty"`
	Err     string  `json:"error,omitempty"`
	Detail  string  `json:"detail,omitempty"`
	Message string  `json:"message"`
}

func (e *TransferError) Error() string {
	return e.Message
}

// NewTransferError builds a TransferError whose Message is msg as given;
// the optional context fields are set by opts and are not folded into
// Message, since the structured fields already carry that information for
// machine consumers.
func NewTransferError(variant Variant, msg string, opts ...func(*TransferError)) *TransferError {
	e := &TransferError{Variant: variant, Message: msg}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func WithAlias(alias string) func(*TransferError)     { return func(e *TransferError) { e.Alias = alias } }
func WithAddr(addr string) func(*TransferError)        { return func(e *TransferError) { e.Addr = addr } }
func WithPath(path string) func(*TransferError)        { return func(e *TransferError) { e.Path = path } }
func WithPattern(pattern string) func(*TransferError)  { return func(e *TransferError) { e.Pattern = pattern } }
func WithErr(err error) func(*TransferError) {
	return func(e *TransferError) {
		if err != nil {
			e.Err = err.Error()
		}
	}
}
func WithDetail(detail string) func(*TransferError) { return func(e *TransferError) { e.Detail = detail } }

// IsRetriablePreTransfer reports whether this error, when encountered
// before any byte has been streamed (session/SFTP establishment,
// pre-checks), should trigger a retry after a session/SFTP rebuild.
func (e *TransferError) IsRetriablePreTransfer() bool {
	switch e.Variant {
	case SshSessionCreateFailed, SshHandshakeFailed, WorkerBuildSessionFailed,
		SftpCreateFailed, WorkerNoSession, WorkerNoSftp:
		return true
	default:
		return false
	}
}

// IsRetriableDuringTransfer reports whether this error, when encountered
// while a file is actively being streamed, should trigger a retry.
func (e *TransferError) IsRetriableDuringTransfer() bool {
	switch e.Variant {
	case WorkerIo, SftpCreateFailed, WorkerNoSftp, WorkerNoSession:
		return true
	default:
		return false
	}
}

// IsRetriable reports whether this error should trigger another attempt
// in either phase. Workers only ever produce pre-transfer variants from
// session/SFTP setup and WorkerIo from active streaming, so the two
// classifications never conflict for a given TransferError instance.
func (e *TransferError) IsRetriable() bool {
	return e.IsRetriablePreTransfer() || e.IsRetriableDuringTransfer()
}
