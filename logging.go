package raft

import "go.uber.org/zap"

func newLogger(debug bool) *zap.SugaredLogger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		logger = zap.NewNop()
	}
	return logger.Sugar()
}

// logFields prefixes every log line with the node/term/role triple, the
// same convention the teacher repo's logFields(server, ...) helper uses.
func logFields(o *Orchestrator, kv ...interface{}) []interface{} {
	base := []interface{}{
		"node_id", o.id,
		"term", o.persist.CurrentTerm(),
		"role", o.role.Name().String(),
	}
	return append(base, kv...)
}
