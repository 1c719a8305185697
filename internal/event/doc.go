// Package event stores campus events: talks, fairs, exam sessions and the like.
// Any signed-in user may publish one; listings are public.
package event
