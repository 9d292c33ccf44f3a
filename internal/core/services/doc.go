// Package services implements the driving port interfaces.
// Services contain the core business logic of the assistant and
// orchestrate calls to driven ports (adapters): security screening,
// document loading, vector storage, answer generation and the
// session lifecycle.
//
// Services are pure Go with no CGO or external dependencies.
package services
