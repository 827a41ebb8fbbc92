package services

import "github.com/google/wire"

var DeproxySet = wire.NewSet(
	NewDeproxy,
)
