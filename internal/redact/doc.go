// Package redact removes secrets from source code before it is sent to a
// remote language model.
//
// Credential assignments (api keys, passwords, secrets, tokens) keep their
// left-hand side and have only the quoted literal replaced, so a model can
// still report the hardcoded credential. Recognizable token shapes such as
// JWTs, private key headers and provider keys are replaced wholesale.
package redact
