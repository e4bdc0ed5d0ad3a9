// Package logging provides the structured, subsystem-tagged logging used
// across the probe: the lifecycle controller, the queue controller, the
// Kafka streaming layer and the credential pipeline all log through the
// same small API.
//
// # Architecture
//
//   - **Debug**: Detailed information for debugging and development
//   - **Info**: General informational messages about application operation
//   - **Warn**: Warning messages that indicate potential issues
//   - **Error**: Error messages for failures and exceptional conditions
//
// Every log entry carries a timestamp, level, subsystem tag and optional
// error, and is rendered through slog.TextHandler.
//
// # Redaction
//
// Before any message reaches the handler it is passed through
// probeerrors.Redact, so vault responses, client secrets and JAAS strings
// never appear verbatim in a log line (spec.md §7).
//
// # Usage
//
//	logging.InitForCLI(logging.LevelInfo, os.Stdout)
//	logging.Info("Lifecycle", "test %s entered state %s", testID, state)
//	logging.Error("Vault", err, "credential fetch failed for topic %s", topic)
//
// # Subsystem Organization
//
//   - **Serve**: process startup and shutdown of the serve command
//   - **HTTPAPI**: the HTTP front door
//   - **Config**: configuration loading and validation
//   - **QueueController**: admission, dispatch, circuit breaker
//   - **Lifecycle**: per-test state machine
//   - **KafkaProducer** / **KafkaConsumer**: streaming layer
//   - **Vault** / **Rosetta**: credential pipeline
//   - **Storage**: staging and evidence upload
//   - **Gherkin**: scenario execution bridge
package logging
