package firm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/bus"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/clock"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/ecosim"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/entity/firm"
	"github.com/tsinghua-fib-lab/agentsociety-popsim/utils/config"
)

type testContext struct {
	rc  *config.RuntimeConfig
	bus *bus.Bus
}

func (c *testContext) Clock() *clock.Clock                  { return nil }
func (c *testContext) RuntimeConfig() *config.RuntimeConfig { return c.rc }
func (c *testContext) Catalog() ecosim.ICatalog             { return nil }
func (c *testContext) Market() ecosim.IMarket               { return nil }
func (c *testContext) Bus() *bus.Bus                        { return c.bus }
func (c *testContext) PopManager() entity.IPopManager       { return nil }

func expect(t *testing.T, mb *bus.Mailbox, kind bus.MessageKind) bus.ActorMessage {
	t.Helper()
	msg, err := mb.SpecificWait(context.Background(), bus.Expect(kind))
	require.NoError(t, err)
	return msg
}

func TestFirmDay(t *testing.T) {
	ctx := &testContext{
		rc: config.NewRuntimeConfig(config.Config{
			Control: config.Control{WaitTimeout: 2},
			Economy: config.Economy{TimeProduct: 1, WageProduct: 7, Wage: 1.5, TimePerDay: 16},
		}),
		bus: bus.NewBus(),
	}
	f := firm.New(ctx, 3, []int32{1, 2})
	assert.Equal(t, bus.Firm(3), f.Actor())
	assert.Equal(t, []int32{1, 2}, f.Employees())

	sys := bus.NewMailbox(ctx.bus, bus.System, 2*time.Second)
	workers := map[int32]*bus.Mailbox{
		1: bus.NewMailbox(ctx.bus, bus.Pop(1), 2*time.Second),
		2: bus.NewMailbox(ctx.bus, bus.Pop(2), 2*time.Second),
	}
	done := make(chan error, 1)
	go func() { done <- f.RunDay(context.Background()) }()

	require.NoError(t, sys.PushMessage(bus.New(bus.StartDay, bus.System, bus.Everyone)))
	given := map[int32]float64{1: 8, 2: 4}
	for id, mb := range workers {
		req := expect(t, mb, bus.FirmToEmployee)
		assert.Equal(t, bus.RequestTime, req.Action)
		assert.Equal(t, 8.0, req.Quantity)

		hours := bus.New(bus.SendProduct, mb.Self(), f.Actor())
		hours.Product, hours.Quantity = 1, given[id]
		require.NoError(t, mb.PushMessage(hours))
		sent := bus.New(bus.EmployeeToFirm, mb.Self(), f.Actor())
		sent.Action = bus.RequestSent
		require.NoError(t, mb.PushMessage(sent))
	}
	for id, mb := range workers {
		wage := expect(t, mb, bus.SendProduct)
		assert.Equal(t, int32(7), wage.Product)
		assert.InDelta(t, given[id]*1.5, wage.Quantity, 1e-9)
		assert.Equal(t, bus.WorkDayEnded, expect(t, mb, bus.FirmToEmployee).Action)
	}
	assert.Equal(t, f.Actor(), expect(t, sys, bus.Finished).Sender)
	require.NoError(t, sys.PushMessage(bus.New(bus.AllFinished, bus.System, bus.Everyone)))
	require.NoError(t, <-done)

	hours, paid := f.Labor()
	assert.Equal(t, 12.0, hours)
	assert.InDelta(t, 18, paid, 1e-9)
}

func TestFirmIgnoresStrangers(t *testing.T) {
	ctx := &testContext{
		rc:  config.NewRuntimeConfig(config.Config{Control: config.Control{WaitTimeout: 2}}),
		bus: bus.NewBus(),
	}
	f := firm.New(ctx, 1, []int32{1})
	sys := bus.NewMailbox(ctx.bus, bus.System, 2*time.Second)
	worker := bus.NewMailbox(ctx.bus, bus.Pop(1), 2*time.Second)
	stranger := bus.NewMailbox(ctx.bus, bus.Pop(5), 2*time.Second)
	done := make(chan error, 1)
	go func() { done <- f.RunDay(context.Background()) }()

	require.NoError(t, sys.PushMessage(bus.New(bus.StartDay, bus.System, bus.Everyone)))
	expect(t, worker, bus.FirmToEmployee)

	gift := bus.New(bus.SendProduct, stranger.Self(), f.Actor())
	gift.Product, gift.Quantity = config.DefaultTimeProduct, 100
	require.NoError(t, stranger.PushMessage(gift))
	sent := bus.New(bus.EmployeeToFirm, worker.Self(), f.Actor())
	sent.Action = bus.RequestSent
	require.NoError(t, worker.PushMessage(sent))

	// 没有收到工作时间，不发工资
	assert.Equal(t, bus.WorkDayEnded, expect(t, worker, bus.FirmToEmployee).Action)
	expect(t, sys, bus.Finished)
	require.NoError(t, sys.PushMessage(bus.New(bus.AllFinished, bus.System, bus.Everyone)))
	require.NoError(t, <-done)

	hours, paid := f.Labor()
	assert.Zero(t, hours)
	assert.Zero(t, paid)
}
