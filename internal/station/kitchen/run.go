package kitchen

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"comanda-system/internal/config"
	"comanda-system/internal/domain"
	"comanda-system/internal/logger"
	"comanda-system/internal/station/bridge"
)

// Run mounts a kitchen display: the bridge feeds new-order events into the
// queue, and a small console lets the cook toggle, annotate, remove and
// clear tickets. Console output goes to stdout; logs stay structured.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, station string) error {
	queue := NewOrderQueue()

	br := bridge.New(bridge.Config{
		URL:     cfg.RabbitURL,
		Station: station,
	}, bridge.Handlers{
		OnNewOrder: func(ev domain.NewOrderEvent) {
			if queue.Ingest(ev.Order) {
				log.Info("comanda_received", map[string]any{"order_id": ev.OrderID, "table": ev.TableNumber})
				render(queue)
			}
		},
	}, log)

	go console(ctx, queue)
	return br.Run(ctx)
}

func console(ctx context.Context, queue *OrderQueue) {
	sc := bufio.NewScanner(os.Stdin)
	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "ls":
			render(queue)
		case "done":
			if id, ok := parseID(fields); ok && !queue.ToggleState(id) {
				fmt.Printf("comanda %d no existe\n", id)
			}
		case "note":
			if id, ok := parseID(fields); ok {
				note := strings.Join(fields[2:], " ")
				if !queue.EditNote(id, note) {
					fmt.Printf("comanda %d no existe\n", id)
				}
			}
		case "rm":
			if id, ok := parseID(fields); ok {
				queue.Remove(id)
			}
		case "clear":
			queue.ClearAll()
			fmt.Println("pantalla limpia")
		default:
			fmt.Println("comandos: ls | done <id> | note <id> <texto> | rm <id> | clear")
		}
	}
}

func parseID(fields []string) (int64, bool) {
	if len(fields) < 2 {
		fmt.Println("falta el id de comanda")
		return 0, false
	}
	id, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		fmt.Printf("id invalido: %s\n", fields[1])
		return 0, false
	}
	return id, true
}

func render(queue *OrderQueue) {
	orders := queue.Orders()
	if len(orders) == 0 {
		fmt.Println("no hay comandas")
		return
	}
	now := time.Now()
	for _, o := range orders {
		fmt.Printf("#%d mesa %d [%s] %s\n", o.OrderID, o.TableNumber, o.State, ElapsedLabel(o.ArrivedAt, now))
		for _, it := range o.Items {
			line := fmt.Sprintf("  %s x %d", it.Name, it.Quantity)
			if it.Note != "" {
				line += " - " + it.Note
			}
			fmt.Println(line)
		}
	}
}
