package relay

import (
	"fmt"

	"github.com/bail-wils/Support-Knowledge-Agent/internal/config"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/convert"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/graph"
	"github.com/bail-wils/Support-Knowledge-Agent/internal/ledger"
)

// FromConfig wires a Service from process configuration.
func FromConfig(cfg *config.Config) (*Service, error) {
	connector, err := graph.NewConnector(cfg.Graph)
	if err != nil {
		return nil, fmt.Errorf("graph connector: %w", err)
	}

	l, err := ledger.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("run ledger: %w", err)
	}

	return NewService(connector, l, Options{
		DriveID:           cfg.Relay.DriveID,
		TargetFolderID:    cfg.Relay.TargetFolderID,
		OutputMode:        convert.Mode(cfg.Relay.OutputMode),
		UploadConcurrency: cfg.Relay.UploadConcurrency,
	}), nil
}
