package mocks

//go:generate mockgen -destination=./mock_conn.go -package=mocks github.com/rxtech-lab/trade-sampler/internal/stream Conn
//go:generate mockgen -destination=./mock_writer.go -package=mocks github.com/rxtech-lab/trade-sampler/internal/artifact Writer
