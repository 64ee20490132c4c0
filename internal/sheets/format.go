package sheets

import (
	"fmt"

	"tripledger/internal/amqp"
)

func formatCounts(ev amqp.ChangeEvent) string {
	return fmt.Sprintf("+%d ~%d -%d", ev.Created, ev.Updated, ev.Deleted)
}
