// Package batch predicts machine failures for many sensor readings at once.
//
// ReadReadings parses CSV files in the layout of the AI4I 2020 predictive
// maintenance dataset, the data the prediction models are trained on.
// Processor submits the readings to the prediction API concurrently with
// errgroup, bounded by a concurrency limit, and keeps the results in input
// order so that they can be written with the report package.
package batch
