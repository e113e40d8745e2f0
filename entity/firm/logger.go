package firm

import "github.com/sirupsen/logrus"

var log = logrus.WithField("module", "firm")
