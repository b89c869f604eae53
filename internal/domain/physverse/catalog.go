package physverse

import "github.com/okian/visualverse/internal/domain/catalog"

// Catalog lists the physics scenarios.
func Catalog() []catalog.Entry {
	entry := func(kind, title, summary string, lvl catalog.Level, ex any, tags ...string) catalog.Entry {
		return catalog.Entry{
			Domain: catalog.DomainPhysics, Kind: kind, Title: title, Summary: summary,
			Level: lvl, Tags: tags, Example: catalog.Example(ex),
		}
	}
	return []catalog.Entry{
		entry("projectile", "Projectile motion", "Independent horizontal and vertical motion under gravity.", catalog.Beginner,
			ProjectileParams{Speed: 20, AngleDeg: 45}, "kinematics", "gravity"),
		entry("free_fall", "Free fall", "A dropped ball accelerating at g, optionally bouncing.", catalog.Beginner,
			FreeFallParams{Height: 20, Restitution: 0.7}, "kinematics", "gravity"),
		entry("harmonic_oscillator", "Harmonic oscillator", "A mass on a spring trading kinetic and potential energy.", catalog.Intermediate,
			HarmonicParams{Mass: 1, Stiffness: 4, Amplitude: 1, Damping: 0.2}, "oscillation", "energy"),
		entry("pendulum", "Simple pendulum", "Non-linear pendulum compared with the small-angle period.", catalog.Intermediate,
			PendulumParams{Length: 2, AngleDeg: 30}, "oscillation", "gravity"),
		entry("circular_motion", "Circular motion", "Constant speed with a centripetal acceleration.", catalog.Beginner,
			CircularParams{Radius: 5, Speed: 10}, "kinematics", "rotation"),
		entry("elastic_collision", "Elastic collision", "Two masses exchanging momentum with no energy loss.", catalog.Advanced,
			CollisionParams{Mass1: 2, Mass2: 1, Velocity1: 3, Velocity2: -1, Position1: 0, Position2: 10}, "momentum", "energy"),
	}
}
