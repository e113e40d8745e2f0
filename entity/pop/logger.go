package pop

import "github.com/sirupsen/logrus"

// log 居民模块的日志记录器
var log = logrus.WithField("module", "pop")
