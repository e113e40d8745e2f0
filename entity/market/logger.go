package market

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "market")
