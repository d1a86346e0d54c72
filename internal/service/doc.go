// Package service contains the circulation business logic: borrowing,
// returning, fine finalization and loan listing. It orchestrates the store
// interfaces inside database transactions so every operation is atomic with
// respect to concurrent callers.
package service
