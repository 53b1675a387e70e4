package stores

import (
	"os"

	"github.com/anlyetim/TeamPad-sub001/core"
	"github.com/anlyetim/TeamPad-sub001/stores/aws"
	"github.com/anlyetim/TeamPad-sub001/stores/filesystem"
	"github.com/anlyetim/TeamPad-sub001/stores/memory"
	"github.com/anlyetim/TeamPad-sub001/stores/sqlite"

	"github.com/sirupsen/logrus"
)

// GetStore selects the relay's project store from the STORAGE_TYPE
// environment variable, defaulting to in-memory.
func GetStore() core.ProjectStore {
	storageType := os.Getenv("STORAGE_TYPE")
	var store core.ProjectStore

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "filesystem":
		basePath := os.Getenv("LOCAL_STORAGE_PATH")
		if basePath == "" {
			basePath = "./data"
		}
		storageField["basePath"] = basePath
		store = filesystem.NewStore(basePath)
	case "sqlite":
		dataSourceName := os.Getenv("DATA_SOURCE_NAME")
		if dataSourceName == "" {
			dataSourceName = "teampad.db"
		}
		storageField["dataSourceName"] = dataSourceName
		store = sqlite.NewStore(dataSourceName)
	case "s3":
		bucketName := os.Getenv("S3_BUCKET_NAME")
		if bucketName == "" {
			logrus.Fatal("S3_BUCKET_NAME environment variable must be set for s3 storage type")
		}
		storageField["bucketName"] = bucketName
		store = aws.NewStore(bucketName)
	default:
		store = memory.NewStore()
		storageField["storageType"] = "in-memory"
	}
	logrus.WithFields(storageField).Info("Use storage")
	return store
}
