package notifsvc

import (
	"log"
	"strings"

	"github.com/trezcool/masomo-admin/core"
)

// consoleService prints notifications to the standard logger; stands in for
// the dashboard's toast surface in CLI and development use.
type consoleService struct {
	std    *log.Logger
	prefix string
}

var _ core.Notifier = (*consoleService)(nil)

func NewConsoleService(std *log.Logger, conf *core.Config) core.Notifier {
	return &consoleService{
		std:    std,
		prefix: "[" + conf.AppName + "] ",
	}
}

func (svc consoleService) Notify(kind core.NotificationKind, title, message string) {
	svc.std.Printf("%s%s | %s: %s", svc.prefix, strings.ToUpper(string(kind)), title, message)
}
