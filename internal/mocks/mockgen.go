package mocks

//go:generate sh -c "go run go.uber.org/mock/mockgen -package mocks -destination codec.go github.com/linksim/linksim/fec Codec"
//go:generate sh -c "go run go.uber.org/mock/mockgen -package mocks -destination noiser.go github.com/linksim/linksim/channel Noiser"
