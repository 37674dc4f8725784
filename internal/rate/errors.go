package rate

import "errors"

// ErrRateLimited is returned once the attempt budget for a window is spent.
var ErrRateLimited = errors.New("rate limited")
