package kin

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
)

// JointType selects how a segment moves with its joint value.
type JointType int

const (
	// Revolute joints rotate about their axis by the joint angle.
	Revolute JointType = iota
	// Prismatic joints translate along their axis by the joint value.
	Prismatic
	// Fixed joints never move and do not consume a joint value.
	Fixed
)

func (t JointType) String() string {
	switch t {
	case Revolute:
		return "revolute"
	case Prismatic:
		return "prismatic"
	case Fixed:
		return "fixed"
	default:
		return fmt.Sprintf("JointType(%d)", int(t))
	}
}

// ParseJointType maps a URDF-style type name to a JointType.
func ParseJointType(s string) (JointType, error) {
	switch s {
	case "revolute", "continuous":
		return Revolute, nil
	case "prismatic":
		return Prismatic, nil
	case "fixed":
		return Fixed, nil
	default:
		return 0, fmt.Errorf("%w: unknown joint type %q", ErrInvalidChainConfiguration, s)
	}
}

// Limits bounds a joint value. Lower == Upper == 0 means unbounded.
type Limits struct {
	Lower float64
	Upper float64
}

// Bounded reports whether the limits constrain the joint.
func (l Limits) Bounded() bool {
	return l.Lower != 0 || l.Upper != 0
}

// Clamp restricts v to the limits when they are bounded.
func (l Limits) Clamp(v float64) float64 {
	if !l.Bounded() {
		return v
	}
	return math.Max(l.Lower, math.Min(l.Upper, v))
}

// Segment describes one joint and the link it carries.
type Segment struct {
	Joint  string
	Type   JointType
	Parent string
	Child  string
	// Origin of the joint frame in the parent link frame.
	XYZ r3.Vector
	RPY r3.Vector
	// Axis in the joint frame. Ignored for fixed joints.
	Axis   r3.Vector
	Limits Limits
}

// Chain is an immutable open serial chain from a base link to an end link.
type Chain struct {
	segments []Segment
	origins  []Transform
	links    []string
	index    map[string]int
	joints   []int // segment index of every moving joint, in order
}

// NewChain validates segments and builds a chain. Each segment's parent must be
// the previous segment's child; the first parent is the base link.
func NewChain(segments []Segment) (*Chain, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: chain has no segments", ErrInvalidChainConfiguration)
	}

	c := &Chain{
		segments: make([]Segment, len(segments)),
		origins:  make([]Transform, len(segments)),
		links:    make([]string, 0, len(segments)+1),
		index:    make(map[string]int, len(segments)+1),
	}

	base := segments[0].Parent
	if base == "" {
		return nil, fmt.Errorf("%w: base link has no name", ErrInvalidChainConfiguration)
	}
	c.links = append(c.links, base)
	c.index[base] = 0

	jointNames := make(map[string]struct{}, len(segments))
	for i, s := range segments {
		if s.Parent != c.links[len(c.links)-1] {
			return nil, fmt.Errorf("%w: segment %d parent %q does not follow link %q",
				ErrInvalidChainConfiguration, i, s.Parent, c.links[len(c.links)-1])
		}
		if s.Child == "" {
			return nil, fmt.Errorf("%w: segment %d has no child link", ErrInvalidChainConfiguration, i)
		}
		if _, dup := c.index[s.Child]; dup {
			return nil, fmt.Errorf("%w: link %q appears twice (cycle)", ErrInvalidChainConfiguration, s.Child)
		}
		if _, dup := jointNames[s.Joint]; dup && s.Joint != "" {
			return nil, fmt.Errorf("%w: joint %q appears twice", ErrInvalidChainConfiguration, s.Joint)
		}
		if !finiteVector(s.XYZ) || !finiteVector(s.RPY) || !finiteVector(s.Axis) {
			return nil, fmt.Errorf("%w: segment %d has non-finite geometry", ErrInvalidChainConfiguration, i)
		}
		if s.Type != Fixed {
			n := s.Axis.Norm()
			if n == 0 {
				return nil, fmt.Errorf("%w: joint %q has a zero axis", ErrInvalidChainConfiguration, s.Joint)
			}
			s.Axis = s.Axis.Mul(1 / n)
			c.joints = append(c.joints, i)
		}
		jointNames[s.Joint] = struct{}{}

		c.segments[i] = s
		c.origins[i] = FromXYZRPY(s.XYZ, s.RPY)
		c.index[s.Child] = len(c.links)
		c.links = append(c.links, s.Child)
	}

	return c, nil
}

// JointCount returns the number of moving joints.
func (c *Chain) JointCount() int { return len(c.joints) }

// BaseLink returns the first link of the chain.
func (c *Chain) BaseLink() string { return c.links[0] }

// EndLink returns the last link of the chain.
func (c *Chain) EndLink() string { return c.links[len(c.links)-1] }

// Links returns the link names from base to end.
func (c *Chain) Links() []string {
	out := make([]string, len(c.links))
	copy(out, c.links)
	return out
}

// Segments returns a copy of the segment descriptors (axes normalized).
func (c *Chain) Segments() []Segment {
	out := make([]Segment, len(c.segments))
	copy(out, c.segments)
	return out
}

// JointNames returns the moving joint names in chain order.
func (c *Chain) JointNames() []string {
	out := make([]string, len(c.joints))
	for i, si := range c.joints {
		out[i] = c.segments[si].Joint
	}
	return out
}

// Limits returns the moving joint limits in chain order.
func (c *Chain) Limits() []Limits {
	out := make([]Limits, len(c.joints))
	for i, si := range c.joints {
		out[i] = c.segments[si].Limits
	}
	return out
}

// LinkTransforms returns the pose of every link relative to the base link,
// indexed like Links().
func (c *Chain) LinkTransforms(angles []float64) ([]Transform, error) {
	frames, err := c.walk(angles)
	if err != nil {
		return nil, err
	}
	return frames.links, nil
}

// jointFrame is a moving joint's origin and axis in base coordinates.
type jointFrame struct {
	typ    JointType
	origin r3.Vector
	axis   r3.Vector
}

type chainFrames struct {
	links  []Transform
	joints []jointFrame
}

// walk composes origin and joint motion of every segment in a single pass.
func (c *Chain) walk(angles []float64) (*chainFrames, error) {
	if err := c.checkAngles(angles); err != nil {
		return nil, err
	}

	out := &chainFrames{
		links:  make([]Transform, 0, len(c.links)),
		joints: make([]jointFrame, 0, len(c.joints)),
	}

	t := Identity()
	out.links = append(out.links, t)
	k := 0
	for i, s := range c.segments {
		jt := t.Mul(c.origins[i])
		switch s.Type {
		case Revolute:
			out.joints = append(out.joints, jointFrame{s.Type, jt.Translation(), jt.RotateVector(s.Axis)})
			jt = jt.Mul(NewTransform(AxisAngle(s.Axis, angles[k]), r3.Vector{}))
			k++
		case Prismatic:
			out.joints = append(out.joints, jointFrame{s.Type, jt.Translation(), jt.RotateVector(s.Axis)})
			jt = jt.Mul(Translation(s.Axis.Mul(angles[k])))
			k++
		}
		t = jt
		out.links = append(out.links, t)
	}
	return out, nil
}

func (c *Chain) checkAngles(angles []float64) error {
	if len(angles) != len(c.joints) {
		return fmt.Errorf("%w: got %d joint values, chain has %d joints",
			ErrDimensionMismatch, len(angles), len(c.joints))
	}
	for i, a := range angles {
		if !isFinite(a) {
			return fmt.Errorf("%w: joint value %d is not finite", ErrDimensionMismatch, i)
		}
	}
	return nil
}
