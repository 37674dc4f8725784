// Package security builds the read-only posture report exposed by
// Engine.SecurityReport.
package security
