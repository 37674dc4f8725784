// Package middleware adapts a goGate engine to net/http.
//
// [Require] and [Optional] read the Authorization bearer credential, run the
// gate and attach the result to the request context. [RequireVerified],
// [RequireOwnership] and [RequireRole] are chained after them and only read
// that context.
//
// Rejections are written as
//
//	{"success":false,"error":"<message>","code":"<CODE>"}
//
// with the status carried by the [goGate.Rejection].
package middleware
