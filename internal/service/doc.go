// Package service contains the application-specific use cases and business
// logic. It orchestrates interactions between domain objects and repositories
// (defined in internal/store) to fulfill application features.
//
// Key components:
//
// 1. Orchestrator:
//   - One method per workflow (saga): Register, Login, CreateCourse, Enroll,
//     DropEnrollment, CreateAssignment, DeleteAssignment, SubmitAssignment,
//     SubmitGrade and CreateAnnouncement
//   - Each takes the acting domain.Principal explicitly; there is no session
//     state in the package
//   - Ownership and validation checks run before any write; every write of a
//     workflow runs in one store.UnitOfWork
//
// 2. NotificationFanout:
//   - Creates one notification per active enrollment with a single bulk insert
//   - Only ever called from inside a workflow's unit of work
//
// 3. Inbox and Reports:
//   - Recipient-guarded notification reads and mutations
//   - Transcript and dashboard queries, retried on transient failures
//
// 4. Error Handling:
//   - Every workflow error is a *WorkflowError whose cause is one of the
//     domain error kinds, so callers can use domain.CategoryOf to present it
//
// Domain events are emitted only after a unit of work commits.
package service
