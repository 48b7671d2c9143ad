package story

import (
	"errors"
	"strings"
)

// ErrInvalidDestination is returned for destinations outside the journey set.
var ErrInvalidDestination = errors.New("invalid destination")

var destinationNames = map[string]string{
	"river":    "a peaceful river",
	"land":     "beautiful landscapes",
	"sky":      "the endless sky",
	"mountain": "majestic mountains",
	"space":    "the vast cosmos",
}

// DestinationStory is the short journey teaser for one of the five destinations.
func DestinationStory(destination string) (string, error) {
	name, ok := destinationNames[strings.TrimSpace(destination)]
	if !ok {
		return "", ErrInvalidDestination
	}
	return "They embark on their journey to " + name + ", hand in hand, hearts full of hope and love. Every moment together is a treasure, every step forward a new adventure.", nil
}

var placeholderImages = []string{
	"https://images.unsplash.com/photo-1516589178581-6cd7833ae3b2?w=1920&h=1080&fit=crop&q=80",
	"https://images.unsplash.com/photo-1506905925346-21bda4d32df4?w=1920&h=1080&fit=crop&q=80",
	"https://images.unsplash.com/photo-1501594907352-04cda38ebc29?w=1920&h=1080&fit=crop&q=80",
	"https://images.unsplash.com/photo-1469474968028-56623f02e42e?w=1920&h=1080&fit=crop&q=80",
}

// PlaceholderImages returns the curated images shown when scene generation fails.
func PlaceholderImages() []string {
	out := make([]string, len(placeholderImages))
	copy(out, placeholderImages)
	return out
}
