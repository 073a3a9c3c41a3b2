package rlu

import "go.uber.org/zap"

func zapThreadID(id int) zap.Field {
	return zap.Int("thread_id", id)
}
