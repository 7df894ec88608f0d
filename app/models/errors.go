package models

import "errors"

var ErrMaterialWithoutSource = errors.New("material needs a storage key or an external url")
