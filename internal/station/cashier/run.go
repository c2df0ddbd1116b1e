package cashier

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"comanda-system/internal/client"
	"comanda-system/internal/config"
	"comanda-system/internal/domain"
	"comanda-system/internal/logger"
	"comanda-system/internal/station/bridge"
)

// Run mounts a cashier station: the bridge keeps the table grid reconciled
// with pushed snapshots, and a console drives the payment session against
// the settlement service.
func Run(ctx context.Context, cfg *config.Config, log *logger.Logger, station string) error {
	ledger := NewTableLedger(cfg.TableCount)
	settlement := client.New(cfg.SettlementURL)
	session := NewSession(settlement, ledger)

	br := bridge.New(bridge.Config{
		URL:             cfg.RabbitURL,
		Station:         station,
		SubscribeTotals: true,
	}, bridge.Handlers{
		OnTableTotals: func(ev domain.TableTotalsEvent) {
			ledger.Reconcile(ev.Tables)
			log.Debug("totals_reconciled", map[string]any{"occupied": len(ev.Tables)})
		},
	}, log)

	go console(ctx, ledger, session, settlement)
	return br.Run(ctx)
}

func console(ctx context.Context, ledger *TableLedger, session *Session, settlement *client.Settlement) {
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
		case "mesas":
			renderGrid(ledger)
		case "mesa":
			if n, ok := parseNumber(fields); ok {
				session.SelectTable(ctx, n)
				renderSession(session)
			}
		case "propina":
			if n, ok := parseNumber(fields); ok {
				session.SetTipPercent(n)
				renderSession(session)
			}
		case "metodo":
			if len(fields) < 2 {
				fmt.Println("metodo debito|credito|efectivo")
				continue
			}
			session.SetMethod(domain.PaymentMethod(fields[1]))
			renderSession(session)
		case "efectivo":
			if n, ok := parseNumber(fields); ok {
				session.SetTendered(int64(n))
				renderSession(session)
			}
		case "pagar":
			if err := session.Commit(ctx); err != nil {
				fmt.Println("error:", err)
				continue
			}
			fmt.Println(session.Notice())
			renderGrid(ledger)
		case "historial":
			renderHistory(ctx, settlement)
		default:
			fmt.Println("comandos: mesas | mesa <n> | propina <pct> | metodo <m> | efectivo <monto> | pagar | historial")
		}
	}
}

func parseNumber(fields []string) (int, bool) {
	if len(fields) < 2 {
		fmt.Println("falta el numero")
		return 0, false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		fmt.Printf("numero invalido: %s\n", fields[1])
		return 0, false
	}
	return n, true
}

func renderGrid(ledger *TableLedger) {
	for _, t := range ledger.Tables() {
		fmt.Printf("mesa %2d  %-8s $%d\n", t.TableID, t.Status, t.Total)
	}
}

func renderSession(session *Session) {
	if msg := session.ErrorMessage(); msg != "" {
		fmt.Println("error:", msg)
	}
	if msg := session.Notice(); msg != "" {
		fmt.Println(msg)
	}
	detail := session.Detail()
	if detail == nil {
		return
	}
	fmt.Printf("comanda #%d mesa %d\n", detail.OrderID, detail.TableNumber)
	for _, it := range detail.Items {
		fmt.Printf("  %-20s x%d  $%d\n", it.Name, it.Quantity, it.Subtotal)
	}
	q := session.Quote()
	fmt.Printf("total sin propina: $%d\n", q.RawTotal)
	fmt.Printf("propina exacta: $%d  redondeada: $%d\n", q.ExactTip, q.RoundedTip)
	fmt.Printf("total exacto: $%d  con propina redondeada: $%d  redondeado final: $%d\n",
		q.ExactTotal, q.TotalWithRoundedTip, q.FinalRoundedTotal)
	fmt.Printf("monto a pagar: $%d\n", q.AmountDue)
	in := session.Intent()
	if in.Method == domain.MethodCash && in.Tendered != nil {
		if q.Shortfall > 0 {
			fmt.Printf("falta por pagar: $%d\n", q.Shortfall)
		} else {
			fmt.Printf("cambio: $%d\n", q.Change)
		}
	}
}

func renderHistory(ctx context.Context, settlement *client.Settlement) {
	payments, err := settlement.History(ctx, domain.HistoryFilter{Limit: 20})
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	if len(payments) == 0 {
		fmt.Println("sin pagos registrados")
		return
	}
	for _, p := range payments {
		fmt.Printf("%s  mesa %2d  $%d (%s)\n", p.PaidAt.Format("2006-01-02 15:04"), p.TableNumber, p.AmountPaid, p.Method)
	}
}
