package handlers_test

import (
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/Ruisth/Library/internal/utils"
)

func auditLogger(mt *mtest.T) utils.Logger {
	return utils.Logger{Collection: mt.DB.Collection("audit_logs")}
}
