package protocol

import "errors"

// Error taxonomy for per-item failures. All of these are returned as values,
// never panics; a single bad frame or packet must not abort a batch.
var (
    // ErrInvalidMagic marks a frame whose magic constant does not match.
    ErrInvalidMagic = errors.New("invalid_magic")
    // ErrCRCMismatch marks a frame whose recomputed CRC-16 differs from the
    // stored one.
    ErrCRCMismatch = errors.New("crc_mismatch")
    // ErrIntegrityCheckFailed marks a packet whose payload hash no longer
    // matches its content hash.
    ErrIntegrityCheckFailed = errors.New("integrity_check_failed")
    // ErrMissingInput marks a nil unit/packet/frame passed to an operation.
    ErrMissingInput = errors.New("missing_required_input")
)
