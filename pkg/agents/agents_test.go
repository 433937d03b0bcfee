package agents

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/picogrid/maildelivery/pkg/actions"
	"github.com/picogrid/maildelivery/pkg/geometry"
	"github.com/picogrid/maildelivery/pkg/world"
)

const dt = 0.1

func testEnvironment(t *testing.T) *world.Environment {
	t.Helper()
	locs := []world.Location{
		{ID: 0, Point: orb.Point{0, 0}, Kind: world.KindDock},
		{ID: 1, Point: orb.Point{1, 0}, Kind: world.KindIntersection},
		{ID: 2, Point: orb.Point{2, 0}, Kind: world.KindIntersection},
		{ID: 3, Point: orb.Point{1, 1}, Kind: world.KindIntersection},
		{ID: 4, Point: orb.Point{2, 1}, Kind: world.KindIntersection},
		{ID: 5, Point: orb.Point{1, 2}, Kind: world.KindHouse},
		{ID: 6, Point: orb.Point{2, 2}, Kind: world.KindHouse},
	}
	roads := []world.Road{{0, 1}, {1, 2}, {2, 4}, {1, 3}, {3, 5}, {4, 6}, {0, 3}}
	pkgs := []world.Package{
		{ID: 0, Owner: 5, OwnerKind: world.OwnerLocation, Goal: 6},
		{ID: 1, Owner: 6, OwnerKind: world.OwnerLocation, Goal: 5},
	}
	env, err := world.NewEnvironment(locs, roads, pkgs)
	require.NoError(t, err)
	return env
}

// actUntil repeats a until it completes and returns the number of ticks used.
func actUntil(t *testing.T, agent Agent, a actions.Action, env *world.Environment, limit int) int {
	t.Helper()
	for tick := 1; tick <= limit; tick++ {
		if agent.Act(a, env) {
			return tick
		}
	}
	t.Fatalf("%s did not complete within %d ticks", a, limit)
	return 0
}

func requireContractViolation(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		require.NotNil(t, r, "expected a contract violation")
		ce, ok := AsContractError(r)
		require.True(t, ok, "panic value %v is not a contract error", r)
		assert.True(t, errors.Is(ce, target), "got %v, want %v", ce, target)
	}()
	fn()
}

func TestMoveConverges(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())

	ticks := actUntil(t, r, actions.NewMove(0, 0, 2), env, 100)

	assert.LessOrEqual(t, ticks, int(math.Ceil(2/(1*dt)))+2)
	assert.Less(t, r.Pose().Range(env.Location(2).Point), DefaultThresholds().Reach)
	assert.Equal(t, 2, r.LastLocation())
	assert.InDelta(t, 100-2*2, r.Charge(), 1e-9)
}

func TestMoveRotatesBeforeTranslating(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())

	// Location 3 sits at 45 degrees; the first tick must only turn.
	done := r.Act(actions.NewMove(0, 0, 3), env)
	assert.False(t, done)
	assert.Equal(t, PhaseRotate, r.LastPhase())
	assert.Equal(t, 0.0, r.Pose().X)
	assert.Equal(t, 0.0, r.Pose().Y)
	assert.InDelta(t, math.Pi/4, r.Pose().Theta, 1e-12)

	r.Act(actions.NewMove(0, 0, 3), env)
	assert.Equal(t, PhaseTranslate, r.LastPhase())
	assert.InDelta(t, dt, r.Pose().Range(orb.Point{0, 0}), 1e-12)
}

func TestRotationIsRateLimited(t *testing.T) {
	env := testEnvironment(t)
	cfg := DefaultRobotConfig()
	cfg.Kinematics.MaxRotate = math.Pi / 8
	r := NewRobot(0, geometry.Identity(), dt, cfg)

	r.Act(actions.NewMove(0, 0, 3), env)
	assert.InDelta(t, math.Pi/8, r.Pose().Theta, 1e-12)
}

func TestMoveNeverOvershoots(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), 0.7, DefaultRobotConfig())

	actUntil(t, r, actions.NewMove(0, 0, 1), env, 10)
	assert.LessOrEqual(t, r.Pose().X, 1+1e-12)
}

func TestEnergyGating(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())
	r.SetCharge(0)
	start := r.Pose()

	for i := 0; i < 50; i++ {
		assert.False(t, r.Act(actions.NewMove(0, 0, 2), env))
	}
	assert.Equal(t, start, r.Pose())
	assert.Equal(t, 0.0, r.Charge())
	assert.True(t, r.Starved())

	r.SetCharge(100)
	r.Act(actions.NewMove(0, 0, 2), env)
	assert.False(t, r.Starved())
	assert.InDelta(t, dt, r.Pose().X, 1e-12)
}

func TestPartialChargeStopsMidRoute(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())
	r.SetCharge(1)

	for i := 0; i < 30; i++ {
		r.Act(actions.NewMove(0, 0, 2), env)
	}
	// Each 0.1 step costs 0.2, so five steps fit in one unit of charge.
	assert.InDelta(t, 0.5, r.Pose().X, 1e-9)
	assert.True(t, r.Starved())
}

func TestChargeup(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())
	r.SetCharge(50)

	ticks := actUntil(t, r, actions.NewChargeup(0, 0), env, 100)
	assert.Equal(t, 5, ticks)
	assert.Equal(t, r.MaxCharge(), r.Charge())

	// Idempotent once full.
	assert.True(t, r.Act(actions.NewChargeup(0, 0), env))
	assert.Equal(t, r.MaxCharge(), r.Charge())
}

func TestChargeupOutOfRange(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())
	r.SetCharge(10)

	assert.False(t, r.Act(actions.NewChargeup(0, 6), env))
	assert.Equal(t, 10.0, r.Charge())
	assert.True(t, r.NeedsCharge())
}

func TestPickupDropRoundTrip(t *testing.T) {
	env := testEnvironment(t)
	home := env.Location(5)
	r := NewRobot(0, geometry.FromPoint(home.Point, 0), dt, DefaultRobotConfig())

	require.True(t, r.Act(actions.NewPickup(0, 0, 5), env))
	p := env.Package(0)
	assert.Equal(t, world.OwnerRobot, p.OwnerKind)
	assert.Equal(t, 0, p.Owner)
	assert.Equal(t, []int{0}, r.Held())

	actUntil(t, r, actions.NewMove(0, 5, 6), env, 100)
	assert.InDelta(t, 2, p.Point[0], 1e-9, "package rides with the robot")

	require.True(t, r.Act(actions.NewDrop(0, 0, 6), env))
	assert.Equal(t, world.OwnerLocation, p.OwnerKind)
	assert.Equal(t, 6, p.Owner)
	assert.Equal(t, env.Location(6).Point, p.Point)
	assert.True(t, p.Delivered())
	assert.Empty(t, r.Held())
}

func TestPickupOutOfRange(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())

	assert.False(t, r.Act(actions.NewPickup(0, 0, 5), env))
	assert.Equal(t, world.OwnerLocation, env.Package(0).OwnerKind)
}

func TestPickupWaitsForPackageInTransit(t *testing.T) {
	env := testEnvironment(t)
	courier := NewRobot(0, geometry.FromPoint(env.Location(5).Point, 0), dt, DefaultRobotConfig())
	receiver := NewRobot(1, geometry.FromPoint(env.Location(6).Point, 0), dt, DefaultRobotConfig())

	require.True(t, courier.Act(actions.NewPickup(0, 0, 5), env))
	courier.Act(actions.NewMove(0, 5, 6), env)

	// The receiver is at the location but the package is still on the road.
	assert.False(t, receiver.Act(actions.NewPickup(1, 0, 6), env))

	actUntil(t, courier, actions.NewMove(0, 5, 6), env, 100)
	require.True(t, courier.Act(actions.NewDrop(0, 0, 6), env))

	// At rest the package record and its location coincide.
	assert.Equal(t, env.Location(6).Point, env.Package(0).Point)
	assert.True(t, receiver.Act(actions.NewPickup(1, 0, 6), env))
	assert.True(t, env.Package(0).HeldBy(1))
}

func TestSyncHeld(t *testing.T) {
	env := testEnvironment(t)
	env.Package(1).TransferToRobot(3)
	r := NewRobot(3, geometry.NewPose2(0.5, 0.5, 0), dt, DefaultRobotConfig())

	r.SyncHeld(env)
	assert.Equal(t, []int{1}, r.Held())
	assert.Equal(t, orb.Point{0.5, 0.5}, env.Package(1).Point)
}

func TestPrepareFlyNeverCompletes(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())

	for i := 0; i < 5; i++ {
		assert.False(t, r.Act(actions.NewPrepareFly(0), env))
	}
	assert.True(t, r.Act(actions.NewWait(0), env))
}

func TestRobotContractViolations(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())

	requireContractViolation(t, ErrWrongAgent, func() {
		r.Act(actions.NewMove(1, 0, 2), env)
	})
	requireContractViolation(t, ErrUnsupportedAction, func() {
		r.Act(actions.NewFly(0, 0, 2), env)
	})
	requireContractViolation(t, ErrPackageNotHeld, func() {
		r.Act(actions.NewDrop(0, 0, 0), env)
	})
	requireContractViolation(t, ErrUnknownPackage, func() {
		r.Act(actions.NewPickup(0, 9, 0), env)
	})
	requireContractViolation(t, ErrUnknownLocation, func() {
		r.Act(actions.NewMove(0, 0, 99), env)
	})
}

func TestDroneFly(t *testing.T) {
	env := testEnvironment(t)
	d := NewDrone(10, geometry.Identity(), dt, DefaultDroneConfig())
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())
	r.SetCharge(0)

	ticks := actUntil(t, d, actions.NewFly(10, 0, 6), env, 200)
	assert.Greater(t, ticks, 1)
	assert.Less(t, d.Pose().Range(env.Location(6).Point), DefaultThresholds().Reach)
	assert.Equal(t, orb.Point{0, 0}, r.Sense(), "robots are not moved by plain flights")
}

func TestDroneRefusesUnpreparedPassenger(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.Identity(), dt, DefaultRobotConfig())
	d := NewDrone(10, geometry.Identity(), dt, DefaultDroneConfig())
	d.SetPassengers(Fleet{0: r})

	carry := actions.NewFlyWithPassenger(10, 0, 0, 6)
	for i := 0; i < 20; i++ {
		assert.False(t, d.Act(carry, env))
	}
	assert.Equal(t, geometry.Identity(), d.Pose())
	assert.Equal(t, geometry.Identity(), r.Pose())
}

func TestDroneCarriesPassenger(t *testing.T) {
	env := testEnvironment(t)
	r := NewRobot(0, geometry.FromPoint(env.Location(5).Point, 0), dt, DefaultRobotConfig())
	require.True(t, r.Act(actions.NewPickup(0, 0, 5), env))
	r.SetCurrentAction(actions.NewPrepareFly(0))

	d := NewDrone(10, geometry.FromPoint(env.Location(5).Point, 0), dt, DefaultDroneConfig())
	d.SetPassengers(Fleet{0: r})
	charge := r.Charge()

	carry := actions.NewFlyWithPassenger(10, 0, 5, 0)
	for tick := 0; ; tick++ {
		require.Less(t, tick, 200, "drone never arrived")
		done := d.Act(carry, env)
		assert.Equal(t, d.Pose(), r.Pose())
		assert.Equal(t, r.Sense(), env.Package(0).Point)
		if done {
			break
		}
		assert.Equal(t, actions.KindPrepareFly, r.CurrentAction().Kind())
	}

	assert.Equal(t, actions.KindWait, r.CurrentAction().Kind())
	assert.Equal(t, charge, r.Charge(), "carried robots spend no charge")
	assert.Less(t, r.Pose().Range(env.Location(0).Point), DefaultThresholds().Reach)
}

func TestDroneContractViolations(t *testing.T) {
	env := testEnvironment(t)
	d := NewDrone(10, geometry.Identity(), dt, DefaultDroneConfig())

	requireContractViolation(t, ErrWrongAgent, func() {
		d.Act(actions.NewFly(11, 0, 1), env)
	})
	requireContractViolation(t, ErrUnsupportedAction, func() {
		d.Act(actions.NewMove(10, 0, 1), env)
	})
	requireContractViolation(t, ErrUnknownPassenger, func() {
		d.Act(actions.NewFlyWithPassenger(10, 4, 0, 1), env)
	})
	assert.True(t, d.Act(actions.NewWait(10), env))
}

func TestEnergyModel(t *testing.T) {
	e := DefaultEnergy()
	assert.Equal(t, 0.2, e.Cost(-0.1))
	assert.InDelta(t, 0.01, e.ChargeTime(1), 1e-15)
	assert.InDelta(t, 10, e.ChargeRate(0.1), 1e-9)
}
