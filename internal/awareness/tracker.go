// Package awareness is the per-agent threat tracker: it feeds sightings and
// damage into an enemy table, optionally shared with a squad, keeps a stable
// enemy selection and tracks the current hurt event and hazard.
package awareness

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/OCAP2/awareness/internal/enemies"
	"github.com/OCAP2/awareness/internal/perception"
	"github.com/OCAP2/awareness/internal/world"
	"github.com/OCAP2/awareness/pkg/core"
)

// ErrNotAttached is returned when detaching from a squad the tracker is not attached to.
var ErrNotAttached = errors.New("not attached to squad")

const hazardPlanningMinSkill = 0.33

// Planner receives replanning requests.
type Planner interface {
	ForcePlanBuilding()
}

// Squad is a group whose shared enemy table a tracker uses while attached.
type Squad interface {
	Name() string
	Table() *enemies.Table
}

type nopPlanner struct{}

func (nopPlanner) ForcePlanBuilding() {}

// Options configures a Tracker.
type Options struct {
	Agent core.EntityID
	Skill float64
	World world.World
	// Tunables defaults to enemies.TunablesForSkill(Skill).
	Tunables enemies.Tunables
	Planner  Planner
	// Scanner and Candidates enable visibility scanning on Think.
	Scanner    *perception.Scanner
	Candidates func() []core.EntityID
	// PVS is shared with the scanner when set; otherwise the tracker keeps
	// its own cache over World.
	PVS    *perception.PVSCache
	Logger enemies.Logger
	Tracer enemies.Tracer
	// OnHurt receives every latched hurt event.
	OnHurt func(core.HurtTrace)
	Rand   *rand.Rand
}

// Tracker is the threat awareness of one agent.
type Tracker struct {
	agent      core.EntityID
	skill      float64
	world      world.World
	planner    Planner
	scanner    *perception.Scanner
	candidates func() []core.EntityID
	logger     enemies.Logger
	onHurt     func(core.HurtTrace)
	rng        *rand.Rand

	own   *enemies.Table
	squad Squad

	targetChoicePeriod core.Timestamp
	reactionTime       core.Timestamp

	selected SelectedEnemies
	lost     SelectedEnemies

	events EventsTracker

	hurt            HurtEvent
	hazards         HazardSelector
	pendingHazards  []core.HazardReport
	triggeredHazard Hazard
}

// New creates a tracker with its own private enemy table.
func New(opts Options) *Tracker {
	if opts.Tunables == (enemies.Tunables{}) {
		opts.Tunables = enemies.TunablesForSkill(opts.Skill)
	}
	if opts.Planner == nil {
		opts.Planner = nopPlanner{}
	}
	if opts.Logger == nil {
		opts.Logger = enemies.NopLogger{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(uint64(opts.Agent), 0x7ea7))
	}
	if opts.PVS == nil {
		opts.PVS = perception.NewPVSCache(opts.World)
	}

	t := &Tracker{
		agent:              opts.Agent,
		skill:              opts.Skill,
		world:              opts.World,
		planner:            opts.Planner,
		scanner:            opts.Scanner,
		candidates:         opts.Candidates,
		logger:             opts.Logger,
		onHurt:             opts.OnHurt,
		rng:                opts.Rand,
		targetChoicePeriod: core.Timestamp(1500 - 500*opts.Skill),
	}
	t.own = enemies.New(enemies.Options{
		Name:     fmt.Sprintf("agent-%d", opts.Agent),
		World:    opts.World,
		Hooks:    &agentHooks{tracker: t},
		Tunables: opts.Tunables,
		Logger:   opts.Logger,
		Tracer:   opts.Tracer,
		Rand:     rand.New(rand.NewPCG(opts.Rand.Uint64(), opts.Rand.Uint64())),
	})
	tun := t.own.Tunables()
	t.reactionTime = tun.ReactionTime
	for _, s := range []*SelectedEnemies{&t.selected, &t.lost} {
		s.agent = opts.Agent
		s.world = opts.World
		s.pvs = opts.PVS
		s.hazard = t.PrimaryHazard
		s.armorProtection = tun.ArmorProtection
		s.armorDegradation = tun.ArmorDegradation
		s.damageToKill = opts.World.DamageToKill
	}
	t.events = EventsTracker{
		agent:      opts.Agent,
		skill:      opts.Skill,
		world:      opts.World,
		pvs:        opts.PVS,
		candidates: opts.Candidates,
		rng:        opts.Rand,
		guess:      t.OnEnemyOriginGuessed,
	}
	return t
}

// Close releases the private table.
func (t *Tracker) Close() { t.own.Close() }

func (t *Tracker) Agent() core.EntityID { return t.agent }

func (t *Tracker) Skill() float64 { return t.skill }

// Table is the private enemy table.
func (t *Tracker) Table() *enemies.Table { return t.own }

// ActiveTable is the squad table while attached, otherwise the private one.
func (t *Tracker) ActiveTable() *enemies.Table {
	if t.squad != nil {
		return t.squad.Table()
	}
	return t.own
}

func (t *Tracker) Squad() Squad { return t.squad }

func (t *Tracker) OnAttachedToSquad(s Squad) {
	t.squad = s
	t.selected.Invalidate()
	t.lost.Invalidate()
}

// OnDetachedFromSquad switches back to the private table.
func (t *Tracker) OnDetachedFromSquad(s Squad) error {
	if t.squad == nil {
		return fmt.Errorf("detaching agent %d from %s: %w", t.agent, squadName(s), ErrNotAttached)
	}
	if t.squad != s {
		return fmt.Errorf("detaching agent %d from %s, attached to %s: %w", t.agent, squadName(s), t.squad.Name(), ErrNotAttached)
	}
	t.squad = nil
	t.selected.Invalidate()
	t.lost.Invalidate()
	return nil
}

func squadName(s Squad) string {
	if s == nil {
		return "<nil>"
	}
	return s.Name()
}

func (t *Tracker) OnEnemyViewed(entity core.EntityID) {
	t.own.OnEnemyViewed(entity)
	if t.squad != nil {
		t.squad.Table().OnEnemyViewed(entity)
	}
}

func (t *Tracker) OnEnemyOriginGuessed(entity core.EntityID, minStaleness core.Timestamp, origin *core.Vec3) {
	t.own.OnEnemyOriginGuessed(entity, minStaleness, origin)
	if t.squad != nil {
		t.squad.Table().OnEnemyOriginGuessed(entity, minStaleness, origin)
	}
}

func (t *Tracker) OnPain(attacker core.EntityID, kick, damage float64) {
	t.own.OnPain(attacker, kick, damage)
	if t.squad != nil {
		t.squad.Table().OnPain(attacker, kick, damage)
	}
}

func (t *Tracker) OnEnemyDamaged(target core.EntityID, damage float64) {
	t.own.OnEnemyDamaged(target, damage)
	if t.squad != nil {
		t.squad.Table().OnEnemyDamaged(target, damage)
	}
}

// Forget drops entity from the private table and, while attached, the squad table.
func (t *Tracker) Forget(entity core.EntityID) {
	t.own.Forget(entity)
	if t.squad != nil {
		t.squad.Table().Forget(entity)
	}
}

// ReportHazard queues a hazard to be considered on the next Think.
func (t *Tracker) ReportHazard(h core.HazardReport) {
	t.pendingHazards = append(t.pendingHazards, h)
}

// RegisterSound queues a guess for a hostile the agent can hear.
func (t *Tracker) RegisterSound(s core.Sound) { t.events.RegisterSound(s) }

// RegisterTeleportOut queues a guess at the destination of a hostile
// entering a teleporter near the agent.
func (t *Tracker) RegisterTeleportOut(tele core.TeleportOut) { t.events.RegisterTeleportOut(tele) }

func (t *Tracker) Events() *EventsTracker { return &t.events }

// Frame runs per-frame maintenance of the private table.
func (t *Tracker) Frame() {
	t.own.Frame()
}

// Think registers visible and heard enemies, weights the private table,
// refreshes the selection and requests a replan for a new hazard.
func (t *Tracker) Think() {
	t.registerVisibleEnemies()
	t.checkForNewHazards()
	t.events.Think()
	t.own.Think()

	now := t.world.Now()
	if t.selected.AreValid(now) {
		if now-t.selected.LastSeenAt() > min(64, t.reactionTime) {
			t.updateSelectedEnemies()
		}
	} else {
		t.updateSelectedEnemies()
	}

	t.tryTriggerPlanningForNewHazard()
}

func (t *Tracker) registerVisibleEnemies() {
	if t.scanner == nil || t.candidates == nil {
		return
	}
	for _, id := range t.scanner.Scan(t.agent, t.candidates()) {
		t.OnEnemyViewed(id)
	}
}

func (t *Tracker) updateSelectedEnemies() {
	t.selected.Invalidate()
	t.lost.Invalidate()

	now := t.world.Now()
	table := t.ActiveTable()
	visibleWeight := 0.0
	if visible := table.ChooseVisibleEnemy(t.agent); visible != nil {
		t.selected.set(visible, table.ActiveEnemies(), now+t.targetChoicePeriod)
		visibleWeight = 0.5 * (visible.AvgWeight() + visible.MaxWeight())
	}
	if lost := table.ChooseLostOrHiddenEnemy(t.agent, enemies.NotSeenSuggestTimeout); lost != nil {
		if 0.5*(lost.AvgWeight()+lost.MaxWeight()) > visibleWeight {
			t.lost.set(lost, []*enemies.Enemy{lost}, now+t.targetChoicePeriod)
		}
	}
}

// SelectedEnemies is the current selection. It may be invalid.
func (t *Tracker) SelectedEnemies() *SelectedEnemies { return &t.selected }

// LostEnemy is an unseen enemy worth looking for, or nil.
func (t *Tracker) LostEnemy() *enemies.Enemy {
	if !t.lost.AreValid(t.world.Now()) {
		return nil
	}
	return t.lost.Primary()
}

func (t *Tracker) ChooseVisibleEnemy() *enemies.Enemy {
	return t.ActiveTable().ChooseVisibleEnemy(t.agent)
}

func (t *Tracker) ChooseLostOrHiddenEnemy(timeout core.Timestamp) *enemies.Enemy {
	return t.ActiveTable().ChooseLostOrHiddenEnemy(t.agent, timeout)
}

func (t *Tracker) ActiveEnemies() []*enemies.Enemy { return t.ActiveTable().ActiveEnemies() }

func (t *Tracker) LastAttackedByTime(entity core.EntityID) core.Timestamp {
	return t.ActiveTable().LastAttackedByTime(entity)
}

func (t *Tracker) TotalDamageInflictedBy(entity core.EntityID) float64 {
	return t.ActiveTable().TotalDamageInflictedBy(entity)
}

// IsEngaged reports whether entity is one of the agent's own attackers or targets.
func (t *Tracker) IsEngaged(entity core.EntityID) bool {
	return t.own.IsAttacker(entity) || t.own.IsTarget(entity)
}

// State is the agent's own world state.
func (t *Tracker) State() (core.EntityState, bool) { return t.world.Entity(t.agent) }

// IsGhosting reports whether the agent is currently out of play.
func (t *Tracker) IsGhosting() bool {
	s, ok := t.State()
	return !ok || s.Ghosting
}

// OnEnemyRemoved drops the selection if it contained e.
func (t *Tracker) OnEnemyRemoved(e *enemies.Enemy) {
	if !t.selected.AreValid(t.world.Now()) || !t.selected.Contains(e) {
		return
	}
	t.selected.Invalidate()
	t.planner.ForcePlanBuilding()
}

// OnNewThreat is called by a squad table when a squad member got hurt.
func (t *Tracker) OnNewThreat(entity core.EntityID) {
	t.onHurtByNewThreat(entity, false)
}

// HurtEvent returns the current hurt event while it is valid.
func (t *Tracker) HurtEvent() (HurtEvent, bool) {
	self, ok := t.State()
	if !ok || !t.hurt.IsValidFor(t.world, self) {
		return HurtEvent{}, false
	}
	return t.hurt, true
}

func (t *Tracker) onHurtByNewThreat(threat core.EntityID, fromOwnTable bool) {
	// while in a squad, threats come from the squad table only
	if t.squad != nil && fromOwnTable {
		return
	}
	self, ok := t.State()
	if !ok {
		return
	}

	hadValidThreat := t.hurt.IsValidFor(t.world, self)
	totalDamage := t.ActiveTable().TotalDamageInflictedBy(threat)
	now := t.world.Now()
	if hadValidThreat {
		if t.hurt.TotalDamage > totalDamage {
			return
		}
		if t.hurt.Inflictor == threat {
			t.hurt.TotalDamage = totalDamage
			t.hurt.LastHitAt = now
			return
		}
	}

	inflictor, ok := t.world.Entity(threat)
	if !ok {
		return
	}
	toEnemy := inflictor.Origin.Sub(self.Origin)
	if toEnemy.SquaredLength() < 1 {
		return
	}
	distance := toEnemy.Length()
	dir := toEnemy.Scale(1 / distance)
	if dir.Dot(self.Forward.Normalize()) >= 0 {
		return
	}

	// the guess is noisy, the real direction is never known exactly
	dir.X += -0.25 + 0.5*t.rng.Float64()
	dir.Y += -0.10 + 0.2*t.rng.Float64()
	dir = dir.Normalize()

	t.hurt = HurtEvent{
		Inflictor:      threat,
		LastHitAt:      now,
		PossibleOrigin: self.Origin.Add(dir.Scale(distance)),
		TotalDamage:    totalDamage,
	}
	t.logger.Debug("hurt by new threat", "agent", t.agent, "inflictor", threat, "damage", totalDamage)
	if t.onHurt != nil {
		t.onHurt(core.HurtTrace{
			Time:           now,
			Agent:          t.agent,
			Inflictor:      threat,
			TotalDamage:    totalDamage,
			PossibleOrigin: t.hurt.PossibleOrigin,
		})
	}
	if !hadValidThreat {
		t.planner.ForcePlanBuilding()
	}
}

// PrimaryHazard returns the current hazard while it is valid.
func (t *Tracker) PrimaryHazard() (Hazard, bool) {
	return t.hazards.Primary(t.world.Now())
}

func (t *Tracker) checkForNewHazards() {
	pending := t.pendingHazards
	t.pendingHazards = t.pendingHazards[:0]
	if _, ok := t.PrimaryHazard(); ok {
		return
	}
	t.events.ResetTeammates()
	t.hazards.BeginUpdate()
	for _, h := range pending {
		t.hazards.TryAddHazard(h.Damage, h.HitPoint, h.Direction, h.Attacker, h.SplashRadius)
	}
	t.hazards.EndUpdate(t.world.Now())
	t.events.GuessHazardAttackers(pending)
}

func (t *Tracker) tryTriggerPlanningForNewHazard() {
	if t.skill <= hazardPlanningMinSkill {
		return
	}
	hazard, ok := t.PrimaryHazard()
	if !ok {
		return
	}
	if !t.triggeredHazard.IsValid(t.world.Now()) {
		t.triggeredHazard = hazard
		t.logger.Debug("replanning for hazard", "agent", t.agent, "damage", hazard.Damage, "attacker", hazard.Attacker)
		t.planner.ForcePlanBuilding()
	}
}
