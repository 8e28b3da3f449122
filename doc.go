// Package rolesync keeps an authentication-owned identity record and an
// application-owned profile record consistent, and projects the profile's
// role into the identity's claims payload for downstream token issuance.
//
// Reactions:
//   - IdentityMirror creates the profile row when an identity appears.
//   - ClaimsInitializer seeds the claims payload's role key when the profile
//     row appears.
//   - ClaimsUpdater patches the role key when the profile's role changes,
//     guarded so same-value updates produce no claims write.
//
// All three run synchronously inside the transaction that performed the
// triggering mutation, so a committed profile is never observable without
// its seeded claims and a committed role change never without its patch.
// A failure in any reaction aborts the whole unit of work.
//
// Privilege model:
//   - Claims-payload writes require a ServiceIdentity authority in the
//     context. The dispatcher grants it around reaction bodies only; callers
//     without it get ErrClaimsWriteDenied. The triggering actor never gains
//     general write access to the identity record.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter describing the mutations
//     the pipeline performed. Sinks run best-effort (errors are logged) so
//     you can forward to a database or queue without blocking the write path.
package rolesync
