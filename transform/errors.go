// SPDX-License-Identifier: MIT
package transform

import "errors"

// ErrNilPass is returned by Run when a Pass in the list has a nil Apply
// function, mirroring builder.ErrConstructFailed's "nil constructor" guard.
var ErrNilPass = errors.New("transform: nil pass")
