package questionbank

import "challenge-arena/internal/domain"

// Default returns the built-in catalogue.
func Default() Bank {
	return New(
		map[string][]domain.Question{
			"Space": {
				{Prompt: "What planet is known as the Red Planet?", Answer: "Mars", Points: 10, TimeLimit: 15},
				{Prompt: "How many planets are in our solar system?", Answer: "8", Points: 10, TimeLimit: 15},
				{Prompt: "What is the largest planet?", Answer: "Jupiter", Points: 15, TimeLimit: 20},
				{Prompt: "What do we call a star that has exploded?", Answer: "Supernova", Points: 20, TimeLimit: 25},
				{Prompt: "What force keeps planets in orbit?", Answer: "Gravity", Points: 15, TimeLimit: 20},
			},
			"Nature": {
				{Prompt: "What gas do plants breathe in?", Answer: "Carbon dioxide", Points: 15, TimeLimit: 20},
				{Prompt: "What is the largest rainforest?", Answer: "Amazon", Points: 10, TimeLimit: 15},
				{Prompt: "What do bees collect from flowers?", Answer: "Nectar/Pollen", Points: 10, TimeLimit: 15},
				{Prompt: "What is the process plants use to make food?", Answer: "Photosynthesis", Points: 20, TimeLimit: 25},
			},
			"Animals": {
				{Prompt: "What is the fastest land animal?", Answer: "Cheetah", Points: 10, TimeLimit: 15},
				{Prompt: "How many legs does an octopus have?", Answer: "8", Points: 10, TimeLimit: 15},
				{Prompt: "What animal is known as the King of the Jungle?", Answer: "Lion", Points: 10, TimeLimit: 15},
				{Prompt: "What do you call a group of wolves?", Answer: "Pack", Points: 15, TimeLimit: 20},
			},
			"General": {
				{Prompt: "What color do you get mixing blue and yellow?", Answer: "Green", Points: 10, TimeLimit: 15},
				{Prompt: "How many continents are there?", Answer: "7", Points: 10, TimeLimit: 15},
				{Prompt: "What is the largest ocean?", Answer: "Pacific", Points: 15, TimeLimit: 20},
			},
		},
		[]domain.Question{
			{Prompt: "I have cities but no houses, forests but no trees, water but no fish. What am I?", Answer: "Map", Points: 25},
			{Prompt: "What has hands but can't clap?", Answer: "Clock", Points: 20},
			{Prompt: "What gets wetter the more it dries?", Answer: "Towel", Points: 20},
			{Prompt: "I speak without a mouth and hear without ears. What am I?", Answer: "Echo", Points: 25},
			{Prompt: "What can travel around the world while staying in a corner?", Answer: "Stamp", Points: 25},
		},
		[]string{
			"Design a new planet and describe what lives there",
			"Invent a new animal by combining two existing ones",
			"If you could have any superpower, what would it be and why?",
			"Create a story in 3 sentences about a time-traveling robot",
			"What would happen if gravity reversed for one day?",
		},
	)
}
