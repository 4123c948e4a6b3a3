package media

import "errors"

var ErrSourceNotFound = errors.New("media source not found")
