package router

type Config struct {
	MaxRounds int `split_words:"true" default:"6"`
}

const DefaultMaxRounds = 6
